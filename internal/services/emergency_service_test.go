package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"ridepair/internal/models"
	"ridepair/internal/repositories/memory"
	"ridepair/pkg/logger"
)

type fakeSMS struct {
	mu     sync.Mutex
	sent   map[string]string
	failTo string
}

func (f *fakeSMS) Send(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to == f.failTo {
		return "", errors.New("carrier rejected")
	}
	if f.sent == nil {
		f.sent = make(map[string]string)
	}
	f.sent[to] = body
	return "SM" + to, nil
}

func setupEmergency(t *testing.T, smsProvider *fakeSMS) (*rideFixture, EmergencyService) {
	t.Helper()
	f := setupRideService(t)
	broadcaster := NewRealtimeBroadcaster(f.cache, logger.NewNop())
	svc := NewEmergencyService(f.store, memory.NewEmergencyRepository(), smsProvider,
		[]string{"+911122334455"}, broadcaster, f.notifier, logger.NewNop())
	return f, svc
}

func TestEmergencyService_RaiseAlert(t *testing.T) {
	smsProvider := &fakeSMS{failTo: "+447700900123"}
	f, svc := setupEmergency(t, smsProvider)
	ctx := context.Background()
	ride := f.started(t)
	f.notifier.reset()

	lat, lng := 12.9716, 77.5946
	alert, err := svc.RaiseAlert(ctx, "passenger-1", ride.ID, EmergencyInput{
		Message:   "Driver took a wrong turn",
		Latitude:  &lat,
		Longitude: &lng,
		Contacts:  []string{"+1 (415) 555-0100", "+447700900123", "not-a-number", "+911122334455"},
	})
	if err != nil {
		t.Fatalf("RaiseAlert failed: %v", err)
	}
	if alert.Status != models.EmergencyStatusActive || alert.RaisedBy != "passenger-1" {
		t.Errorf("Unexpected alert %+v", alert)
	}

	notified := append([]string{}, alert.ContactsNotified...)
	sort.Strings(notified)
	if !reflect.DeepEqual(notified, []string{"+14155550100", "+911122334455"}) {
		t.Errorf("Unexpected notified contacts %v", notified)
	}
	if body := smsProvider.sent["+14155550100"]; !strings.Contains(body, "Driver took a wrong turn") || !strings.Contains(body, "12.971600,77.594600") {
		t.Errorf("Unexpected sms body %q", body)
	}
	if got := f.notifier.byType(models.NotificationTypeEmergency); !reflect.DeepEqual(got, []string{"driver-1"}) {
		t.Errorf("Emergency notification went to %v", got)
	}

	alerts, err := svc.ListAlerts(ctx, "driver-1", ride.ID)
	if err != nil || len(alerts) != 1 || len(alerts[0].ContactsNotified) != 2 {
		t.Fatalf("ListAlerts returned %+v, %v", alerts, err)
	}
}

func TestEmergencyService_CapsContacts(t *testing.T) {
	smsProvider := &fakeSMS{}
	f, svc := setupEmergency(t, smsProvider)
	ctx := context.Background()
	ride := f.started(t)

	contacts := []string{"+14155550101", "+14155550102", "+14155550103", "+14155550104", "+14155550105", "+14155550106"}
	if _, err := svc.RaiseAlert(ctx, "passenger-1", ride.ID, EmergencyInput{Contacts: contacts}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("Expected ErrValidation for %d contacts, got %v", len(contacts), err)
	}
	if len(smsProvider.sent) != 0 {
		t.Errorf("No sms should be sent for a rejected alert, sent %v", smsProvider.sent)
	}
	if alerts, _ := svc.ListAlerts(ctx, "passenger-1", ride.ID); len(alerts) != 0 {
		t.Errorf("Rejected alert was recorded: %+v", alerts)
	}

	alert, err := svc.RaiseAlert(ctx, "passenger-1", ride.ID, EmergencyInput{Contacts: contacts[:5]})
	if err != nil {
		t.Fatalf("RaiseAlert failed: %v", err)
	}
	// Five personal contacts plus the hotline.
	if len(alert.ContactsNotified) != 6 {
		t.Errorf("Expected 6 notified numbers, got %v", alert.ContactsNotified)
	}
}

func TestEmergencyService_AccessAndResolve(t *testing.T) {
	f, svc := setupEmergency(t, &fakeSMS{})
	ctx := context.Background()

	offer := f.offer(t, "driver-1")
	if _, err := svc.RaiseAlert(ctx, "driver-1", offer.ID, EmergencyInput{}); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized on an unmatched ride, got %v", err)
	}

	ride, _ := f.confirmed(t)
	if _, err := svc.RaiseAlert(ctx, "outsider", ride.ID, EmergencyInput{}); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized for an outsider, got %v", err)
	}

	alert, err := svc.RaiseAlert(ctx, "driver-1", ride.ID, EmergencyInput{})
	if err != nil {
		t.Fatalf("RaiseAlert failed: %v", err)
	}
	if alert.Message == "" {
		t.Error("Expected a default alert message")
	}

	if _, err := svc.ResolveAlert(ctx, "passenger-1", alert.ID); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized resolving someone else's alert, got %v", err)
	}
	resolved, err := svc.ResolveAlert(ctx, "driver-1", alert.ID)
	if err != nil || resolved.Status != models.EmergencyStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("ResolveAlert returned %+v, %v", resolved, err)
	}
	if _, err := svc.ResolveAlert(ctx, "driver-1", alert.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition resolving twice, got %v", err)
	}
	if _, err := svc.ListAlerts(ctx, "outsider", ride.ID); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized listing as outsider, got %v", err)
	}
}

func TestDeviceService_Validation(t *testing.T) {
	f := setupRideService(t)
	devices := NewDeviceService(f.cache, logger.NewNop())
	ctx := context.Background()

	if err := devices.RegisterDevice(ctx, "user-1", "windows", "tok"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for an unknown platform, got %v", err)
	}
	if err := devices.RegisterDevice(ctx, "user-1", PlatformIOS, " "); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for an empty token, got %v", err)
	}

	devices.RegisterDevice(ctx, "user-1", PlatformIOS, "ios-token")
	devices.UnregisterDevice(ctx, "user-1", PlatformIOS, "ios-token")
	if tokens, _ := f.cache.SMembers(ctx, deviceTokenKey(PlatformIOS, "user-1")); len(tokens) != 0 {
		t.Errorf("Expected no tokens after unregister, got %v", tokens)
	}
}
