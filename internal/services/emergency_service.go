package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
	"ridepair/pkg/sms"
	"ridepair/pkg/websocket"
)

type EmergencyInput struct {
	Message   string
	Latitude  *float64
	Longitude *float64
	Contacts  []string
}

type EmergencyService interface {
	RaiseAlert(ctx context.Context, actorID string, rideID primitive.ObjectID, input EmergencyInput) (*models.EmergencyAlert, error)
	ResolveAlert(ctx context.Context, actorID string, alertID primitive.ObjectID) (*models.EmergencyAlert, error)
	ListAlerts(ctx context.Context, actorID string, rideID primitive.ObjectID) ([]*models.EmergencyAlert, error)
}

type emergencyService struct {
	store       interfaces.RideStore
	repo        interfaces.EmergencyRepository
	sms         sms.Provider
	hotlines    []string
	broadcaster *RealtimeBroadcaster
	notifier    Notifier
	logger      *logger.Logger
}

func NewEmergencyService(
	store interfaces.RideStore,
	repo interfaces.EmergencyRepository,
	smsProvider sms.Provider,
	hotlines []string,
	broadcaster *RealtimeBroadcaster,
	notifier Notifier,
	log *logger.Logger,
) EmergencyService {
	if smsProvider == nil {
		smsProvider = sms.Noop{}
	}
	return &emergencyService{
		store:       store,
		repo:        repo,
		sms:         smsProvider,
		hotlines:    hotlines,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      log,
	}
}

// RaiseAlert records the alert before texting anyone so that it survives an
// SMS outage. Individual SMS failures do not fail the call.
func (s *emergencyService) RaiseAlert(ctx context.Context, actorID string, rideID primitive.ObjectID, input EmergencyInput) (*models.EmergencyAlert, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	if !models.CanAccess(actorID, ride) {
		return nil, models.ErrNotAuthorized
	}
	if len(input.Contacts) > utils.MaxEmergencyContacts {
		return nil, fmt.Errorf("%w: at most %d emergency contacts", models.ErrValidation, utils.MaxEmergencyContacts)
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = "Emergency reported during a shared ride"
	}

	alert := &models.EmergencyAlert{
		ID:               primitive.NewObjectID(),
		RideID:           rideID,
		RaisedBy:         actorID,
		Message:          message,
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		Status:           models.EmergencyStatusActive,
		ContactsNotified: []string{},
		CreatedAt:        utils.NowUTC(),
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, storeError(err)
	}

	log := s.logger.WithRideID(rideID).WithUserID(actorID)
	log.LogSecurityEvent("emergency_alert_raised", "critical", map[string]interface{}{
		"alert_id": alert.ID.Hex(),
	})

	body := s.smsBody(ride, alert)
	for _, number := range s.recipients(input.Contacts) {
		if _, err := s.sms.Send(ctx, number, body); err != nil {
			log.WithError(err).WithField("to", utils.MaskPhone(number)).Error("failed to send emergency sms")
			continue
		}
		alert.ContactsNotified = append(alert.ContactsNotified, number)
	}
	if len(alert.ContactsNotified) > 0 {
		if err := s.repo.Update(ctx, alert); err != nil {
			log.WithError(err).Warn("failed to record notified emergency contacts")
		}
	}

	err = s.broadcaster.Broadcast(ctx, websocket.RideRoom(rideID.Hex()), websocket.Message{
		Type:   string(models.NotificationTypeEmergency),
		UserID: actorID,
		Data: map[string]interface{}{
			"alert_id": alert.ID.Hex(),
			"message":  alert.Message,
		},
	})
	if err != nil {
		log.WithError(err).Warn("failed to broadcast emergency alert")
	}

	if counterpart, ok := ride.Counterpart(actorID); ok {
		s.notifier.Notify(ctx, models.NewNotification(counterpart, rideID, models.NotificationTypeEmergency,
			"Emergency alert", alert.Message))
	}
	return alert, nil
}

func (s *emergencyService) recipients(contacts []string) []string {
	var out []string
	for _, number := range append(append([]string{}, s.hotlines...), contacts...) {
		if n := utils.NormalizePhone(number); utils.IsValidPhone(n) {
			out = append(out, n)
		}
	}
	return utils.UniqueStrings(out)
}

func (s *emergencyService) smsBody(ride *models.Ride, alert *models.EmergencyAlert) string {
	body := fmt.Sprintf("%s SOS: %s. Ride %s to %s, departing %s.",
		utils.AppName, alert.Message, ride.FromLocation, ride.ToLocation, utils.FormatRideTime(ride.DateTime))
	if alert.Latitude != nil && alert.Longitude != nil {
		body += fmt.Sprintf(" Location: https://maps.google.com/?q=%.6f,%.6f", *alert.Latitude, *alert.Longitude)
	}
	return body
}

func (s *emergencyService) ResolveAlert(ctx context.Context, actorID string, alertID primitive.ObjectID) (*models.EmergencyAlert, error) {
	alert, err := s.repo.GetByID(ctx, alertID)
	if err != nil {
		return nil, storeError(err)
	}
	if alert.RaisedBy != actorID {
		return nil, models.ErrNotAuthorized
	}
	if alert.Status != models.EmergencyStatusActive {
		return nil, fmt.Errorf("%w: alert is already resolved", models.ErrInvalidTransition)
	}

	now := utils.NowUTC()
	alert.Status = models.EmergencyStatusResolved
	alert.ResolvedAt = &now
	if err := s.repo.Update(ctx, alert); err != nil {
		return nil, storeError(err)
	}

	s.logger.WithRideID(alert.RideID).WithUserID(actorID).Info("emergency alert resolved")
	return alert, nil
}

func (s *emergencyService) ListAlerts(ctx context.Context, actorID string, rideID primitive.ObjectID) ([]*models.EmergencyAlert, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	if !ride.IsParticipant(actorID) {
		return nil, models.ErrNotAuthorized
	}

	alerts, err := s.repo.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	return alerts, nil
}
