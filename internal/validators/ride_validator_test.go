package validators

import (
	"testing"
	"time"
)

func TestValidateStruct_CreateRide(t *testing.T) {
	valid := CreateRideRequest{
		FromLocation: "Hostel 4",
		ToLocation:   "Airport",
		DateTime:     time.Now().Add(2 * time.Hour),
		SharedCost:   120,
		VehicleType:  "Car",
	}
	if errs := ValidateStruct(&valid); errs != nil {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	invalid := valid
	invalid.FromLocation = "   "
	invalid.VehicleType = "Truck"
	invalid.SharedCost = -1
	errs := ValidateStruct(&invalid)
	fields := errs.Map()
	for _, field := range []string{"FromLocation", "VehicleType", "SharedCost"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("Expected an error for %s, got %v", field, fields)
		}
	}
}

func TestValidateStruct_RideOTP(t *testing.T) {
	cases := map[string]bool{
		"1234":  true,
		"0042":  true,
		"123":   false,
		"12345": false,
		"12a4":  false,
		"":      false,
	}
	for code, ok := range cases {
		errs := ValidateStruct(&VerifyOTPRequest{OTP: code})
		if (errs == nil) != ok {
			t.Errorf("code %q: expected valid=%v, got %v", code, ok, errs)
		}
	}
}

func TestValidateStruct_EmergencyContacts(t *testing.T) {
	req := RaiseEmergencyRequest{Contacts: []string{"+919876543210", "12345"}}
	if errs := ValidateStruct(&req); errs == nil {
		t.Fatal("Expected invalid phone number to be rejected")
	}
}

func TestParseObjectID(t *testing.T) {
	if _, err := ParseObjectID("not-an-id"); err == nil {
		t.Error("Expected error for malformed id")
	}
	if _, err := ParseObjectID("64b7f0c2a1b2c3d4e5f60718"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
