package utils

import "time"

func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatRideTime renders a departure time for notification text.
func FormatRideTime(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 15:04 MST")
}
