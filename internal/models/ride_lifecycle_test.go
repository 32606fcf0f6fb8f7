package models

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"
)

func sequenceOTP(start int) OTPGenerator {
	next := start
	return func() string {
		code := strconv.Itoa(next)
		next++
		return code
	}
}

func newOffer() *Ride {
	return NewOfferRide("driver-1", RideDetails{
		FromLocation: "North Campus",
		ToLocation:   "Central Station",
		DateTime:     time.Date(2026, 10, 20, 8, 30, 0, 0, time.UTC),
		SharedCost:   40,
		VehicleType:  VehicleTypeBike,
	}, time.Now())
}

func confirmedOffer(t *testing.T) *Ride {
	t.Helper()
	ride := newOffer()
	if err := ride.Accept("driver-1", "passenger-1", sequenceOTP(4321), time.Now()); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	return ride
}

func startedOffer(t *testing.T) *Ride {
	t.Helper()
	ride := confirmedOffer(t)
	if err := ride.VerifyOTP("driver-1", ride.RideOTP, time.Now()); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	ride.ConfirmStart("driver-1", time.Now())
	ride.ConfirmStart("passenger-1", time.Now())
	if ride.Status != RideStatusInProgress {
		t.Fatalf("Expected in-progress, got %s", ride.Status)
	}
	return ride
}

func TestNewRides(t *testing.T) {
	offer := newOffer()
	if offer.Status != RideStatusOffering || offer.Origin != RideOriginOffer {
		t.Errorf("Expected offering offer, got %s/%s", offer.Status, offer.Origin)
	}
	if !reflect.DeepEqual(offer.ParticipantIDs, []string{"driver-1"}) {
		t.Errorf("Unexpected participants %v", offer.ParticipantIDs)
	}

	request := NewRequestRide("passenger-1", RideDetails{FromLocation: "A", ToLocation: "B"}, time.Now())
	if request.Status != RideStatusPending || request.Origin != RideOriginRequest {
		t.Errorf("Expected pending request, got %s/%s", request.Status, request.Origin)
	}
	if request.DriverID != nil {
		t.Error("Expected no driver on a passenger ride")
	}
}

func TestRide_Accept(t *testing.T) {
	ride := confirmedOffer(t)

	if ride.Status != RideStatusConfirmed {
		t.Errorf("Expected confirmed, got %s", ride.Status)
	}
	if ride.PassengerID == nil || *ride.PassengerID != "passenger-1" {
		t.Error("Expected passenger to be set")
	}
	if !reflect.DeepEqual(ride.ParticipantIDs, []string{"driver-1", "passenger-1"}) {
		t.Errorf("Unexpected participants %v", ride.ParticipantIDs)
	}
	if ride.RideOTP != "4321" || ride.OTPVerified {
		t.Errorf("Expected fresh unverified otp, got %q verified=%v", ride.RideOTP, ride.OTPVerified)
	}
	if ride.AcceptedAt == nil {
		t.Error("Expected acceptedAt")
	}
}

func TestRide_Accept_Guards(t *testing.T) {
	ride := newOffer()
	if err := ride.Accept("someone", "passenger-1", sequenceOTP(1000), time.Now()); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}

	ride = confirmedOffer(t)
	if err := ride.Accept("driver-1", "passenger-2", sequenceOTP(1000), time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestRide_Claim(t *testing.T) {
	ride := NewRequestRide("passenger-1", RideDetails{FromLocation: "A", ToLocation: "B"}, time.Now())

	if err := ride.Claim("passenger-1", sequenceOTP(1000), time.Now()); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
	if err := ride.Claim("driver-9", sequenceOTP(1000), time.Now()); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if ride.Status != RideStatusConfirmed || !ride.IsDriver("driver-9") {
		t.Errorf("Expected confirmed ride with driver-9, got %s", ride.Status)
	}
	if err := ride.Claim("driver-8", sequenceOTP(1000), time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestRide_VerifyOTP(t *testing.T) {
	ride := confirmedOffer(t)

	if err := ride.VerifyOTP("driver-1", "12a4", time.Now()); !errors.Is(err, ErrInvalidOTPFormat) {
		t.Errorf("Expected ErrInvalidOTPFormat, got %v", err)
	}
	if err := ride.VerifyOTP("driver-1", "9999", time.Now()); !errors.Is(err, ErrOTPMismatch) {
		t.Errorf("Expected ErrOTPMismatch, got %v", err)
	}
	if ride.OTPVerified {
		t.Fatal("Mismatched otp must not verify the ride")
	}
	if err := ride.VerifyOTP("passenger-1", ride.RideOTP, time.Now()); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized for passenger, got %v", err)
	}
	if err := ride.VerifyOTP("driver-1", ride.RideOTP, time.Now()); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if !ride.OTPVerified {
		t.Error("Expected otp to be verified")
	}
	if err := ride.VerifyOTP("driver-1", ride.RideOTP, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on second verification, got %v", err)
	}
}

func TestRide_ConfirmStart_RequiresBothAndOTP(t *testing.T) {
	ride := confirmedOffer(t)

	if _, err := ride.ConfirmStart("driver-1", time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected start before otp to fail, got %v", err)
	}
	ride.VerifyOTP("driver-1", ride.RideOTP, time.Now())

	for i := 0; i < 2; i++ {
		started, err := ride.ConfirmStart("driver-1", time.Now())
		if err != nil {
			t.Fatalf("ConfirmStart failed: %v", err)
		}
		if started || ride.Status != RideStatusConfirmed {
			t.Fatalf("Expected ride to stay confirmed after one side, got %s", ride.Status)
		}
	}

	started, err := ride.ConfirmStart("passenger-1", time.Now())
	if err != nil {
		t.Fatalf("ConfirmStart failed: %v", err)
	}
	if !started || ride.Status != RideStatusInProgress {
		t.Errorf("Expected in-progress, got %s", ride.Status)
	}
	if !ride.OTPVerified {
		t.Error("in-progress ride must have a verified otp")
	}
}

func TestRide_ConfirmCompletion(t *testing.T) {
	ride := startedOffer(t)

	if done, _ := ride.ConfirmCompletion("passenger-1", time.Now()); done {
		t.Fatal("Completion must wait for both participants")
	}
	if _, err := ride.ConfirmCompletion("stranger", time.Now()); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
	done, err := ride.ConfirmCompletion("driver-1", time.Now())
	if err != nil || !done {
		t.Fatalf("Expected completion, got done=%v err=%v", done, err)
	}
	if ride.Status != RideStatusCompleted || ride.CompletedAt == nil {
		t.Errorf("Expected completed with timestamp, got %s", ride.Status)
	}
}

func TestRide_Cancel_ConfirmedReopens(t *testing.T) {
	ride := confirmedOffer(t)
	ride.VerifyOTP("driver-1", ride.RideOTP, time.Now())
	ride.ConfirmStart("passenger-1", time.Now())
	oldOTP := ride.RideOTP

	result, err := ride.Cancel("passenger-1", "", time.Now())
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if result.Outcome != CancelReopened || result.ByDriver || result.RemovedID != "passenger-1" {
		t.Errorf("Unexpected result %+v", result)
	}
	if ride.Status != RideStatusOffering || ride.PassengerID != nil {
		t.Errorf("Expected offering without passenger, got %s", ride.Status)
	}
	if !reflect.DeepEqual(ride.ParticipantIDs, []string{"driver-1"}) {
		t.Errorf("Unexpected participants %v", ride.ParticipantIDs)
	}
	if ride.RideOTP != "" || ride.OTPVerified || ride.PassengerStarted || ride.AcceptedAt != nil {
		t.Error("Expected handshake state to be cleared")
	}

	// The same generator would hand out the retired code again.
	if err := ride.Accept("driver-1", "passenger-2", func() func() string {
		calls := 0
		return func() string {
			calls++
			if calls == 1 {
				return oldOTP
			}
			return "7777"
		}
	}(), time.Now()); err != nil {
		t.Fatalf("Re-accept failed: %v", err)
	}
	if ride.RideOTP == oldOTP {
		t.Errorf("Expected a fresh otp, got the retired %s", ride.RideOTP)
	}
}

func TestRide_Cancel_RequestOriginReopensToPending(t *testing.T) {
	ride := NewRequestRide("passenger-1", RideDetails{FromLocation: "A", ToLocation: "B"}, time.Now())
	ride.Claim("driver-1", sequenceOTP(2000), time.Now())

	result, err := ride.Cancel("driver-1", "", time.Now())
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !result.ByDriver || result.RemovedID != "driver-1" {
		t.Errorf("Unexpected result %+v", result)
	}
	if ride.Status != RideStatusPending || ride.DriverID != nil {
		t.Errorf("Expected pending ride without driver, got %s", ride.Status)
	}
	if !reflect.DeepEqual(ride.ParticipantIDs, []string{"passenger-1"}) {
		t.Errorf("Unexpected participants %v", ride.ParticipantIDs)
	}
}

func TestRide_Cancel_InProgress(t *testing.T) {
	ride := startedOffer(t)
	ride.ConfirmCompletion("driver-1", time.Now())

	result, err := ride.Cancel("driver-1", "flat tyre", time.Now())
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if result.Outcome != CancelAborted {
		t.Errorf("Expected aborted, got %s", result.Outcome)
	}
	if ride.Status != RideStatusCancelled || ride.CancelledBy == nil || *ride.CancelledBy != "driver-1" {
		t.Error("Expected cancelled ride attributed to driver")
	}
	if ride.RiderCompleted || ride.RiderStarted {
		t.Error("Expected handshake flags to be cleared")
	}
}

func TestRide_Cancel_RefusedLeavesRideUnchanged(t *testing.T) {
	completed := startedOffer(t)
	completed.ConfirmCompletion("driver-1", time.Now())
	completed.ConfirmCompletion("passenger-1", time.Now())

	cancelled := newOffer()
	cancelled.Cancel("driver-1", "", time.Now())

	pendingRequest := NewRequestRide("passenger-1", RideDetails{FromLocation: "A", ToLocation: "B"}, time.Now())

	cases := []struct {
		name  string
		ride  *Ride
		actor string
		want  error
	}{
		{"stranger on offering", newOffer(), "stranger", ErrNotAuthorized},
		{"stranger on confirmed", confirmedOffer(t), "stranger", ErrNotAuthorized},
		{"completed ride", completed, "driver-1", ErrInvalidTransition},
		{"cancelled ride", cancelled, "driver-1", ErrInvalidTransition},
		{"stranger on pending request", pendingRequest, "driver-1", ErrNotAuthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.ride.Clone()
			if _, err := tc.ride.Cancel(tc.actor, "", time.Now()); !errors.Is(err, tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, err)
			}
			if !reflect.DeepEqual(before, tc.ride) {
				t.Errorf("Refused cancel mutated the ride:\nbefore %+v\nafter  %+v", before, tc.ride)
			}
		})
	}
}

func TestCanAccess(t *testing.T) {
	offer := newOffer()
	if CanAccess("driver-1", offer) {
		t.Error("Open rides have no private channel")
	}
	if !CanView("stranger", offer) {
		t.Error("Open rides are browsable")
	}

	ride := confirmedOffer(t)
	if !CanAccess("passenger-1", ride) || !CanAccess("driver-1", ride) {
		t.Error("Participants of a confirmed ride should have access")
	}
	if CanAccess("stranger", ride) || CanView("stranger", ride) {
		t.Error("Strangers must not access a matched ride")
	}
}
