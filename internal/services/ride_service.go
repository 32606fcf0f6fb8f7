package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/config"
	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
	"ridepair/pkg/metrics"
)

type RideService interface {
	// Ride Creation
	CreateOffer(ctx context.Context, driverID string, details models.RideDetails) (*models.Ride, error)
	CreateRideRequest(ctx context.Context, passengerID string, details models.RideDetails) (*models.Ride, error)

	// Ride Queries
	GetRide(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error)
	ListOpenRides(ctx context.Context, actorID string, filter OpenRideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	ListMyRides(ctx context.Context, actorID string, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	CanAccess(ctx context.Context, actorID string, rideID primitive.ObjectID) (bool, error)

	// Join Requests
	RequestToJoin(ctx context.Context, passengerID string, rideID primitive.ObjectID, message string) (*models.RideRequest, error)
	WithdrawRequest(ctx context.Context, passengerID string, requestID primitive.ObjectID) (*models.RideRequest, error)
	RejectRequest(ctx context.Context, driverID string, requestID primitive.ObjectID) (*models.RideRequest, error)
	ListRideRequests(ctx context.Context, driverID string, rideID primitive.ObjectID) ([]*models.RideRequest, error)
	ListMyRequests(ctx context.Context, passengerID string) ([]*models.RideRequest, error)

	// Matching and Trip Handshake
	AcceptRequest(ctx context.Context, driverID string, requestID primitive.ObjectID) (*models.Ride, error)
	ClaimRide(ctx context.Context, driverID string, rideID primitive.ObjectID) (*models.Ride, error)
	VerifyOTP(ctx context.Context, driverID string, rideID primitive.ObjectID, code string) (*models.Ride, error)
	ConfirmStart(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error)
	ConfirmCompletion(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error)
	CancelRide(ctx context.Context, actorID string, rideID primitive.ObjectID, reason string) (*models.Ride, error)
}

// OpenRideFilter narrows the public ride board.
type OpenRideFilter struct {
	Status      models.RideStatus
	Origin      models.RideOrigin
	VehicleType models.VehicleType
}

type rideService struct {
	store          interfaces.RideStore
	cache          CacheService
	notifier       Notifier
	logger         *logger.Logger
	commitAttempts int
	otpMaxAttempts int64
	otpWindow      time.Duration
	otp            models.OTPGenerator
	now            func() time.Time
}

func NewRideService(
	store interfaces.RideStore,
	cache CacheService,
	notifier Notifier,
	cfg *config.LifecycleConfig,
	log *logger.Logger,
) RideService {
	return &rideService{
		store:          store,
		cache:          cache,
		notifier:       notifier,
		logger:         log,
		commitAttempts: cfg.CommitAttempts,
		otpMaxAttempts: int64(cfg.OTPMaxAttempts),
		otpWindow:      cfg.OTPWindow,
		otp:            utils.GenerateRideOTP,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *rideService) CreateOffer(ctx context.Context, driverID string, details models.RideDetails) (*models.Ride, error) {
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	ride := models.NewOfferRide(driverID, details, s.now())
	if err := s.store.CreateRide(ctx, ride); err != nil {
		return nil, storeError(err)
	}

	s.logger.LogRideEvent(ride.ID, "offer_created", map[string]interface{}{"driver_id": driverID})
	return ride.ViewFor(driverID), nil
}

func (s *rideService) CreateRideRequest(ctx context.Context, passengerID string, details models.RideDetails) (*models.Ride, error) {
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	ride := models.NewRequestRide(passengerID, details, s.now())
	if err := s.store.CreateRide(ctx, ride); err != nil {
		return nil, storeError(err)
	}

	s.logger.LogRideEvent(ride.ID, "request_created", map[string]interface{}{"passenger_id": passengerID})
	return ride.ViewFor(passengerID), nil
}

func validateDetails(d models.RideDetails) error {
	switch {
	case strings.TrimSpace(d.FromLocation) == "" || strings.TrimSpace(d.ToLocation) == "":
		return fmt.Errorf("%w: from and to locations are required", models.ErrValidation)
	case d.DateTime.IsZero():
		return fmt.Errorf("%w: date and time are required", models.ErrValidation)
	case d.SharedCost < 0:
		return fmt.Errorf("%w: shared cost cannot be negative", models.ErrValidation)
	case d.VehicleType != "" && !models.IsValidVehicleType(d.VehicleType):
		return fmt.Errorf("%w: unknown vehicle type %q", models.ErrValidation, d.VehicleType)
	}
	return nil
}

func (s *rideService) GetRide(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	if !models.CanView(actorID, ride) {
		return nil, models.ErrNotAuthorized
	}
	return ride.ViewFor(actorID), nil
}

func (s *rideService) ListOpenRides(ctx context.Context, actorID string, filter OpenRideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	statuses := []models.RideStatus{models.RideStatusOffering, models.RideStatusPending}
	if filter.Status != "" {
		if filter.Status != models.RideStatusOffering && filter.Status != models.RideStatusPending {
			return nil, 0, fmt.Errorf("%w: only open rides can be browsed", models.ErrValidation)
		}
		statuses = []models.RideStatus{filter.Status}
	}

	rides, total, err := s.store.ListRides(ctx, interfaces.RideFilter{
		Statuses:           statuses,
		Origin:             filter.Origin,
		VehicleType:        filter.VehicleType,
		ExcludeParticipant: actorID,
	}, params)
	if err != nil {
		return nil, 0, storeError(err)
	}
	return viewsFor(actorID, rides), total, nil
}

func (s *rideService) ListMyRides(ctx context.Context, actorID string, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	rides, total, err := s.store.ListRides(ctx, interfaces.RideFilter{
		Statuses:      statuses,
		ParticipantID: actorID,
	}, params)
	if err != nil {
		return nil, 0, storeError(err)
	}
	return viewsFor(actorID, rides), total, nil
}

func viewsFor(actorID string, rides []*models.Ride) []*models.Ride {
	out := make([]*models.Ride, len(rides))
	for i, ride := range rides {
		out[i] = ride.ViewFor(actorID)
	}
	return out
}

func (s *rideService) CanAccess(ctx context.Context, actorID string, rideID primitive.ObjectID) (bool, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return false, storeError(err)
	}
	return models.CanAccess(actorID, ride), nil
}

func (s *rideService) RequestToJoin(ctx context.Context, passengerID string, rideID primitive.ObjectID, message string) (*models.RideRequest, error) {
	var request *models.RideRequest

	ride, err := s.mutate(ctx, "request_to_join", rideID, func(ride *models.Ride, batch *interfaces.Batch) error {
		if ride.IsDriver(passengerID) {
			return fmt.Errorf("%w: drivers cannot join their own ride", models.ErrNotAuthorized)
		}
		if ride.Origin != models.RideOriginOffer || ride.Status != models.RideStatusOffering {
			return fmt.Errorf("%w: ride is not accepting join requests", models.ErrInvalidTransition)
		}

		existing, err := s.store.ListRideRequests(ctx, interfaces.RideRequestFilter{
			RideID:      &ride.ID,
			PassengerID: passengerID,
			Statuses:    []models.RideRequestStatus{models.RideRequestStatusPending, models.RideRequestStatusAccepted},
		})
		if err != nil {
			return storeError(err)
		}
		if len(existing) > 0 {
			return models.ErrDuplicateRequest
		}

		now := s.now()
		request = &models.RideRequest{
			ID:          primitive.NewObjectID(),
			RideID:      ride.ID,
			PassengerID: passengerID,
			Status:      models.RideRequestStatusPending,
			Message:     strings.TrimSpace(message),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		batch.InsertRequest(request)
		ride.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NewNotification(*ride.DriverID, ride.ID, models.NotificationTypeRideRequested,
		"New join request", fmt.Sprintf("A passenger wants to join your ride to %s", ride.ToLocation)))
	return request, nil
}

func (s *rideService) WithdrawRequest(ctx context.Context, passengerID string, requestID primitive.ObjectID) (*models.RideRequest, error) {
	var updated *models.RideRequest

	err := s.commitWithRetry(ctx, "withdraw_request", func() (*interfaces.Batch, error) {
		request, err := s.store.GetRideRequest(ctx, requestID)
		if err != nil {
			return nil, storeError(err)
		}
		if request.PassengerID != passengerID {
			return nil, models.ErrNotAuthorized
		}
		if request.Status != models.RideRequestStatusPending {
			return nil, fmt.Errorf("%w: request is already %s", models.ErrInvalidTransition, request.Status)
		}

		updated = request.Clone()
		updated.Resolve(models.RideRequestStatusCancelled, s.now())
		batch := &interfaces.Batch{}
		batch.PutRequest(updated, models.RideRequestStatusPending)
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *rideService) RejectRequest(ctx context.Context, driverID string, requestID primitive.ObjectID) (*models.RideRequest, error) {
	var updated *models.RideRequest
	var ride *models.Ride

	err := s.commitWithRetry(ctx, "reject_request", func() (*interfaces.Batch, error) {
		request, err := s.store.GetRideRequest(ctx, requestID)
		if err != nil {
			return nil, storeError(err)
		}
		ride, err = s.store.GetRide(ctx, request.RideID)
		if err != nil {
			return nil, storeError(err)
		}
		if !ride.IsDriver(driverID) {
			return nil, models.ErrNotAuthorized
		}
		if request.Status != models.RideRequestStatusPending {
			return nil, fmt.Errorf("%w: request is already %s", models.ErrInvalidTransition, request.Status)
		}

		updated = request.Clone()
		updated.Resolve(models.RideRequestStatusRejected, s.now())
		batch := &interfaces.Batch{}
		batch.PutRequest(updated, models.RideRequestStatusPending)
		return batch, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, rejectedNotification(updated.PassengerID, ride))
	return updated, nil
}

func (s *rideService) ListRideRequests(ctx context.Context, driverID string, rideID primitive.ObjectID) ([]*models.RideRequest, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	if !ride.IsDriver(driverID) {
		return nil, models.ErrNotAuthorized
	}

	requests, err := s.store.ListRideRequests(ctx, interfaces.RideRequestFilter{RideID: &rideID})
	if err != nil {
		return nil, storeError(err)
	}
	return requests, nil
}

func (s *rideService) ListMyRequests(ctx context.Context, passengerID string) ([]*models.RideRequest, error) {
	requests, err := s.store.ListRideRequests(ctx, interfaces.RideRequestFilter{PassengerID: passengerID})
	if err != nil {
		return nil, storeError(err)
	}
	return requests, nil
}

// AcceptRequest confirms one join request and rejects every other pending
// request on the same ride in a single commit.
func (s *rideService) AcceptRequest(ctx context.Context, driverID string, requestID primitive.ObjectID) (*models.Ride, error) {
	request, err := s.store.GetRideRequest(ctx, requestID)
	if err != nil {
		return nil, storeError(err)
	}

	var rejected []*models.RideRequest
	ride, err := s.mutate(ctx, "accept_request", request.RideID, func(ride *models.Ride, batch *interfaces.Batch) error {
		if !ride.IsDriver(driverID) {
			return models.ErrNotAuthorized
		}

		current, err := s.store.GetRideRequest(ctx, requestID)
		if err != nil {
			return storeError(err)
		}
		if current.Status != models.RideRequestStatusPending {
			return fmt.Errorf("%w: request is already %s", models.ErrInvalidTransition, current.Status)
		}

		now := s.now()
		if err := ride.Accept(driverID, current.PassengerID, s.otp, now); err != nil {
			return err
		}

		accepted := current.Clone()
		accepted.Resolve(models.RideRequestStatusAccepted, now)
		batch.PutRequest(accepted, models.RideRequestStatusPending)

		others, err := s.store.ListRideRequests(ctx, interfaces.RideRequestFilter{
			RideID:   &ride.ID,
			Statuses: []models.RideRequestStatus{models.RideRequestStatusPending},
		})
		if err != nil {
			return storeError(err)
		}

		rejected = rejected[:0]
		for _, other := range others {
			if other.ID == current.ID {
				continue
			}
			r := other.Clone()
			r.Resolve(models.RideRequestStatusRejected, now)
			batch.PutRequest(r, models.RideRequestStatusPending)
			rejected = append(rejected, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifications := []*models.Notification{
		models.NewNotification(*ride.PassengerID, ride.ID, models.NotificationTypeRideAccepted,
			"Request accepted", fmt.Sprintf("Your ride to %s is confirmed. Share your ride code with the driver at pickup.", ride.ToLocation)),
	}
	for _, r := range rejected {
		notifications = append(notifications, rejectedNotification(r.PassengerID, ride))
	}
	s.notifier.Notify(ctx, notifications...)

	return ride.ViewFor(driverID), nil
}

func rejectedNotification(passengerID string, ride *models.Ride) *models.Notification {
	return models.NewNotification(passengerID, ride.ID, models.NotificationTypeRideRejected,
		"Request declined", fmt.Sprintf("Your request to join the ride to %s was declined", ride.ToLocation))
}

func (s *rideService) ClaimRide(ctx context.Context, driverID string, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.mutate(ctx, "claim_ride", rideID, func(ride *models.Ride, _ *interfaces.Batch) error {
		return ride.Claim(driverID, s.otp, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NewNotification(*ride.PassengerID, ride.ID, models.NotificationTypeRideClaimed,
		"Driver found", fmt.Sprintf("A driver took your ride to %s. Share your ride code at pickup.", ride.ToLocation)))
	return ride.ViewFor(driverID), nil
}

// VerifyOTP counts every attempt by the driver within the configured window; a
// successful verification resets the count.
func (s *rideService) VerifyOTP(ctx context.Context, driverID string, rideID primitive.ObjectID, code string) (*models.Ride, error) {
	current, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	if !current.IsDriver(driverID) {
		return nil, models.ErrNotAuthorized
	}
	if err := models.ValidateOTPFormat(code); err != nil {
		return nil, err
	}

	key := utils.CacheOTPAttemptsPrefix + rideID.Hex()
	attempts, err := s.cache.IncrementWithin(ctx, key, s.otpWindow)
	if err != nil {
		s.logger.WithError(err).WithRideID(rideID).Warn("otp attempt counter unavailable")
	} else if attempts > s.otpMaxAttempts {
		metrics.OTPFailures.Inc()
		s.logger.LogSecurityEvent("otp_attempts_exceeded", "medium", map[string]interface{}{
			"ride_id": rideID.Hex(), "user_id": driverID, "attempts": attempts,
		})
		return nil, models.ErrOTPAttemptsExceeded
	}

	ride, err := s.mutate(ctx, "verify_otp", rideID, func(ride *models.Ride, _ *interfaces.Batch) error {
		return ride.VerifyOTP(driverID, code, s.now())
	})
	if err != nil {
		if errors.Is(err, models.ErrOTPMismatch) {
			metrics.OTPFailures.Inc()
		}
		return nil, err
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithRideID(rideID).Warn("failed to reset otp attempt counter")
	}
	return ride.ViewFor(driverID), nil
}

func (s *rideService) ConfirmStart(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error) {
	var started bool
	ride, err := s.mutate(ctx, "confirm_start", rideID, func(ride *models.Ride, _ *interfaces.Batch) error {
		var err error
		started, err = ride.ConfirmStart(actorID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.notifier.Notify(ctx, bothParticipants(ride, models.NotificationTypeRideStarted,
			"Trip started", fmt.Sprintf("Your trip to %s has started", ride.ToLocation))...)
	}
	return ride.ViewFor(actorID), nil
}

func (s *rideService) ConfirmCompletion(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error) {
	var completed bool
	ride, err := s.mutate(ctx, "confirm_completion", rideID, func(ride *models.Ride, _ *interfaces.Batch) error {
		var err error
		completed, err = ride.ConfirmCompletion(actorID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.notifier.Notify(ctx, bothParticipants(ride, models.NotificationTypeRideCompleted,
			"Trip completed", fmt.Sprintf("Your trip to %s is complete", ride.ToLocation))...)
	}
	return ride.ViewFor(actorID), nil
}

func bothParticipants(ride *models.Ride, nType models.NotificationType, title, message string) []*models.Notification {
	var out []*models.Notification
	for _, id := range []*string{ride.DriverID, ride.PassengerID} {
		if id != nil {
			out = append(out, models.NewNotification(*id, ride.ID, nType, title, message))
		}
	}
	return out
}

// CancelRide applies the cancellation policy and settles the join requests it
// affects in the same commit.
func (s *rideService) CancelRide(ctx context.Context, actorID string, rideID primitive.ObjectID, reason string) (*models.Ride, error) {
	reason = strings.TrimSpace(reason)

	var result *models.CancelResult
	var counterpart string
	var rejected []*models.RideRequest

	ride, err := s.mutate(ctx, "cancel_ride", rideID, func(ride *models.Ride, batch *interfaces.Batch) error {
		counterpart, _ = ride.Counterpart(actorID)

		var err error
		result, err = ride.Cancel(actorID, reason, s.now())
		if err != nil {
			return err
		}

		rejected = rejected[:0]
		switch {
		case result.Outcome == models.CancelWithdrawn && ride.Origin == models.RideOriginOffer:
			pending, err := s.store.ListRideRequests(ctx, interfaces.RideRequestFilter{
				RideID:   &ride.ID,
				Statuses: []models.RideRequestStatus{models.RideRequestStatusPending},
			})
			if err != nil {
				return storeError(err)
			}
			for _, p := range pending {
				r := p.Clone()
				r.Resolve(models.RideRequestStatusRejected, ride.UpdatedAt)
				batch.PutRequest(r, models.RideRequestStatusPending)
				rejected = append(rejected, r)
			}

		case result.Outcome == models.CancelReopened && ride.Origin == models.RideOriginOffer:
			accepted, err := s.store.ListRideRequests(ctx, interfaces.RideRequestFilter{
				RideID:      &ride.ID,
				PassengerID: result.RemovedID,
				Statuses:    []models.RideRequestStatus{models.RideRequestStatusAccepted},
			})
			if err != nil {
				return storeError(err)
			}
			status := models.RideRequestStatusCancelled
			if result.ByDriver {
				status = models.RideRequestStatusRejected
			}
			for _, a := range accepted {
				r := a.Clone()
				r.Resolve(status, ride.UpdatedAt)
				batch.PutRequest(r, models.RideRequestStatusAccepted)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var notifications []*models.Notification
	switch result.Outcome {
	case models.CancelReopened:
		notifications = append(notifications, models.NewNotification(counterpart, ride.ID, models.NotificationTypeRideReopened,
			"Ride cancelled", fmt.Sprintf("The ride to %s was cancelled by the other participant", ride.ToLocation)))
	case models.CancelAborted:
		notifications = append(notifications, models.NewNotification(counterpart, ride.ID, models.NotificationTypeRideCancelled,
			"Trip cancelled", fmt.Sprintf("The trip to %s was cancelled while in progress", ride.ToLocation)))
	case models.CancelWithdrawn:
		for _, r := range rejected {
			notifications = append(notifications, models.NewNotification(r.PassengerID, ride.ID, models.NotificationTypeRideCancelled,
				"Ride withdrawn", fmt.Sprintf("The driver withdrew the ride to %s", ride.ToLocation)))
		}
	}
	s.notifier.Notify(ctx, notifications...)

	s.logger.LogRideEvent(ride.ID, "ride_cancel_"+string(result.Outcome), map[string]interface{}{
		"actor_id": actorID, "by_driver": result.ByDriver,
	})
	return ride.ViewFor(actorID), nil
}

// mutate reads the ride, applies fn to a copy and commits the copy guarded by
// the version that was read. fn may add request writes to the batch.
func (s *rideService) mutate(ctx context.Context, op string, rideID primitive.ObjectID, fn func(ride *models.Ride, batch *interfaces.Batch) error) (*models.Ride, error) {
	var next *models.Ride
	err := s.commitWithRetry(ctx, op, func() (*interfaces.Batch, error) {
		current, err := s.store.GetRide(ctx, rideID)
		if err != nil {
			return nil, storeError(err)
		}

		next = current.Clone()
		batch := &interfaces.Batch{}
		if err := fn(next, batch); err != nil {
			return nil, err
		}
		batch.PutRide(next, current.Version)
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// commitWithRetry rebuilds and recommits the batch while commits come back
// stale. A transition refused on fresh state is returned as is.
func (s *rideService) commitWithRetry(ctx context.Context, op string, build func() (*interfaces.Batch, error)) (err error) {
	defer func() {
		metrics.RideTransitions.WithLabelValues(op, metrics.Result(err)).Inc()
	}()

	attempts := s.commitAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		batch, buildErr := build()
		if buildErr != nil {
			return buildErr
		}

		commitErr := s.store.Commit(ctx, batch)
		if commitErr == nil {
			return nil
		}
		if !errors.Is(commitErr, models.ErrStaleState) {
			return storeError(commitErr)
		}

		metrics.StaleCommits.WithLabelValues(op).Inc()
		s.logger.WithFields(map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
		}).Debug("stale commit, retrying")
		err = commitErr
	}
	return err
}

// storeError passes domain errors through and marks everything else as an
// infrastructure failure.
func storeError(err error) error {
	for _, known := range []error{
		models.ErrRideNotFound,
		models.ErrRequestNotFound,
		models.ErrNotificationMissing,
		models.ErrAlertNotFound,
		models.ErrStaleState,
		models.ErrDuplicateRequest,
		models.ErrNotAuthorized,
		models.ErrInvalidTransition,
		models.ErrValidation,
		models.ErrStoreUnavailable,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}
