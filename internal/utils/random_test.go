package utils

import (
	"strconv"
	"testing"
)

func TestGenerateRideOTP_Range(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		code := GenerateRideOTP()
		if len(code) != 4 {
			t.Fatalf("Expected 4 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("Expected numeric code, got %q", code)
		}
		if n < RideOTPMin || n > RideOTPMax {
			t.Fatalf("Code %d out of range", n)
		}
		seen[code] = true
	}
	if len(seen) < 100 {
		t.Errorf("Expected a spread of codes, got only %d distinct", len(seen))
	}
}

func TestSecureRandomInt_Bounds(t *testing.T) {
	for i := 0; i < 500; i++ {
		if n := SecureRandomInt(3); n < 0 || n >= 3 {
			t.Fatalf("SecureRandomInt(3) returned %d", n)
		}
	}
}
