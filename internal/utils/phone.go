package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	phoneStripper = regexp.MustCompile(`[^\d+]`)
)

func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(NormalizePhone(phone))
}

// NormalizePhone strips formatting characters and ensures a leading +.
func NormalizePhone(phone string) string {
	normalized := phoneStripper.ReplaceAllString(strings.TrimSpace(phone), "")
	if normalized == "" {
		return ""
	}
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	return normalized
}

// MaskPhone keeps the last four digits for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
