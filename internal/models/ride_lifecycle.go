package models

import (
	"fmt"
	"time"
)

// OTPGenerator produces a 4-digit ride code.
type OTPGenerator func() string

type CancelOutcome string

const (
	// CancelWithdrawn closes an unmatched ride on behalf of its originator.
	CancelWithdrawn CancelOutcome = "withdrawn"
	// CancelReopened returns a confirmed ride to the market without its counterpart.
	CancelReopened CancelOutcome = "reopened"
	// CancelAborted terminates a trip that had already started.
	CancelAborted CancelOutcome = "aborted"
)

type CancelResult struct {
	Outcome   CancelOutcome
	ByDriver  bool
	RemovedID string
}

func NewOfferRide(driverID string, d RideDetails, now time.Time) *Ride {
	ride := newRide(d, now)
	ride.Origin = RideOriginOffer
	ride.Status = RideStatusOffering
	ride.DriverID = &driverID
	ride.ParticipantIDs = []string{driverID}
	return ride
}

func NewRequestRide(passengerID string, d RideDetails, now time.Time) *Ride {
	ride := newRide(d, now)
	ride.Origin = RideOriginRequest
	ride.Status = RideStatusPending
	ride.PassengerID = &passengerID
	ride.ParticipantIDs = []string{passengerID}
	return ride
}

func newRide(d RideDetails, now time.Time) *Ride {
	return &Ride{
		FromLocation: d.FromLocation,
		ToLocation:   d.ToLocation,
		DateTime:     d.DateTime,
		SharedCost:   d.SharedCost,
		VehicleType:  d.VehicleType,
		Notes:        d.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAccess reports whether actorID may use the ride's private channels (chat,
// emergency alerts). Only participants of a confirmed or running trip qualify.
func CanAccess(actorID string, ride *Ride) bool {
	if ride == nil || !ride.IsParticipant(actorID) {
		return false
	}
	return ride.Status == RideStatusConfirmed || ride.Status == RideStatusInProgress
}

// CanView reports whether actorID may read the ride. Open rides are public.
func CanView(actorID string, ride *Ride) bool {
	return ride != nil && (ride.IsOpen() || ride.IsParticipant(actorID))
}

// Accept matches passengerID to an offering ride. Only the driver may accept.
func (r *Ride) Accept(actorID, passengerID string, nextOTP OTPGenerator, now time.Time) error {
	if !r.IsDriver(actorID) {
		return ErrNotAuthorized
	}
	if r.Status != RideStatusOffering || r.PassengerID != nil {
		return fmt.Errorf("%w: cannot accept a request on a %s ride", ErrInvalidTransition, r.Status)
	}
	if passengerID == "" || passengerID == actorID {
		return fmt.Errorf("%w: invalid passenger", ErrValidation)
	}

	r.PassengerID = &passengerID
	r.addParticipant(passengerID)
	r.confirm(nextOTP, now)
	return nil
}

// Claim lets a driver take a passenger-originated ride.
func (r *Ride) Claim(driverID string, nextOTP OTPGenerator, now time.Time) error {
	if r.IsPassenger(driverID) {
		return fmt.Errorf("%w: passengers cannot claim their own ride", ErrNotAuthorized)
	}
	if r.Origin != RideOriginRequest || r.Status != RideStatusPending || r.DriverID != nil {
		return fmt.Errorf("%w: cannot claim a %s ride", ErrInvalidTransition, r.Status)
	}

	r.DriverID = &driverID
	r.addParticipant(driverID)
	r.confirm(nextOTP, now)
	return nil
}

func (r *Ride) confirm(nextOTP OTPGenerator, now time.Time) {
	r.Status = RideStatusConfirmed
	r.resetHandshake()
	r.RideOTP = r.freshOTP(nextOTP)
	r.AcceptedAt = &now
	r.CancelledAt = nil
	r.CancelledBy = nil
	r.CancellationReason = ""
	r.UpdatedAt = now
}

// freshOTP never hands out the code the ride carried before its last reset.
func (r *Ride) freshOTP(nextOTP OTPGenerator) string {
	for {
		code := nextOTP()
		if code != r.RetiredOTP {
			return code
		}
	}
}

func ValidateOTPFormat(code string) error {
	if len(code) != 4 {
		return ErrInvalidOTPFormat
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return ErrInvalidOTPFormat
		}
	}
	return nil
}

// VerifyOTP is performed by the driver with the code the passenger discloses in person.
func (r *Ride) VerifyOTP(actorID, code string, now time.Time) error {
	if !r.IsParticipant(actorID) || !r.IsDriver(actorID) {
		return fmt.Errorf("%w: only the driver verifies the ride code", ErrNotAuthorized)
	}
	if r.Status != RideStatusConfirmed || r.OTPVerified {
		return fmt.Errorf("%w: ride code cannot be verified now", ErrInvalidTransition)
	}
	if err := ValidateOTPFormat(code); err != nil {
		return err
	}
	if code != r.RideOTP {
		return ErrOTPMismatch
	}

	r.OTPVerified = true
	r.UpdatedAt = now
	return nil
}

// ConfirmStart records the actor's start confirmation and reports whether the
// trip moved to in-progress.
func (r *Ride) ConfirmStart(actorID string, now time.Time) (bool, error) {
	driver, err := r.role(actorID)
	if err != nil {
		return false, err
	}
	if r.Status != RideStatusConfirmed || !r.OTPVerified {
		return false, fmt.Errorf("%w: trip cannot be started now", ErrInvalidTransition)
	}

	if driver {
		r.RiderStarted = true
	} else {
		r.PassengerStarted = true
	}
	r.UpdatedAt = now

	if r.RiderStarted && r.PassengerStarted {
		r.Status = RideStatusInProgress
		r.StartedAt = &now
		return true, nil
	}
	return false, nil
}

// ConfirmCompletion mirrors ConfirmStart for the end of the trip.
func (r *Ride) ConfirmCompletion(actorID string, now time.Time) (bool, error) {
	driver, err := r.role(actorID)
	if err != nil {
		return false, err
	}
	if r.Status != RideStatusInProgress {
		return false, fmt.Errorf("%w: trip is not in progress", ErrInvalidTransition)
	}

	if driver {
		r.RiderCompleted = true
	} else {
		r.PassengerCompleted = true
	}
	r.UpdatedAt = now

	if r.RiderCompleted && r.PassengerCompleted {
		r.Status = RideStatusCompleted
		r.CompletedAt = &now
		return true, nil
	}
	return false, nil
}

// Cancel applies the cancellation policy. A refused cancellation leaves the ride untouched.
func (r *Ride) Cancel(actorID, reason string, now time.Time) (*CancelResult, error) {
	driver, err := r.role(actorID)
	if err != nil {
		return nil, err
	}

	switch r.Status {
	case RideStatusOffering:
		if !driver || r.PassengerID != nil {
			break
		}
		r.terminate(actorID, reason, now)
		return &CancelResult{Outcome: CancelWithdrawn, ByDriver: true}, nil

	case RideStatusPending:
		if driver || r.Origin != RideOriginRequest || r.DriverID != nil {
			break
		}
		r.terminate(actorID, reason, now)
		return &CancelResult{Outcome: CancelWithdrawn}, nil

	case RideStatusConfirmed:
		removed := r.reopen()
		r.UpdatedAt = now
		return &CancelResult{Outcome: CancelReopened, ByDriver: driver, RemovedID: removed}, nil

	case RideStatusInProgress:
		r.terminate(actorID, reason, now)
		return &CancelResult{Outcome: CancelAborted, ByDriver: driver}, nil
	}

	return nil, fmt.Errorf("%w: cannot cancel a %s ride", ErrInvalidTransition, r.Status)
}

// reopen strips the matched counterpart and puts the ride back on the market
// under its originator. It returns the id that was removed.
func (r *Ride) reopen() string {
	var removed string
	if r.Origin == RideOriginRequest {
		removed = *r.DriverID
		r.DriverID = nil
		r.ParticipantIDs = []string{*r.PassengerID}
		r.Status = RideStatusPending
	} else {
		removed = *r.PassengerID
		r.PassengerID = nil
		r.ParticipantIDs = []string{*r.DriverID}
		r.Status = RideStatusOffering
	}
	r.resetHandshake()
	r.AcceptedAt = nil
	r.StartedAt = nil
	return removed
}

func (r *Ride) terminate(actorID, reason string, now time.Time) {
	r.resetHandshake()
	r.Status = RideStatusCancelled
	r.CancelledBy = &actorID
	r.CancelledAt = &now
	r.CancellationReason = reason
	r.UpdatedAt = now
}

func (r *Ride) resetHandshake() {
	if r.RideOTP != "" {
		r.RetiredOTP = r.RideOTP
	}
	r.RideOTP = ""
	r.OTPVerified = false
	r.RiderStarted = false
	r.PassengerStarted = false
	r.RiderCompleted = false
	r.PassengerCompleted = false
}

// role reports whether the actor is the driver (true) or the passenger (false).
func (r *Ride) role(actorID string) (bool, error) {
	if !r.IsParticipant(actorID) {
		return false, ErrNotAuthorized
	}
	switch {
	case r.IsDriver(actorID):
		return true, nil
	case r.IsPassenger(actorID):
		return false, nil
	}
	return false, ErrNotAuthorized
}

func (r *Ride) addParticipant(userID string) {
	if !r.IsParticipant(userID) {
		r.ParticipantIDs = append(r.ParticipantIDs, userID)
	}
}
