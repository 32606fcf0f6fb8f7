package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
)

type EmergencyRepository struct {
	mu     sync.RWMutex
	alerts map[primitive.ObjectID]*models.EmergencyAlert
}

func NewEmergencyRepository() *EmergencyRepository {
	return &EmergencyRepository{
		alerts: make(map[primitive.ObjectID]*models.EmergencyAlert),
	}
}

func (r *EmergencyRepository) Create(ctx context.Context, alert *models.EmergencyAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

func (r *EmergencyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, models.ErrAlertNotFound
	}
	return copyAlert(alert), nil
}

func (r *EmergencyRepository) GetByRideID(ctx context.Context, rideID primitive.ObjectID) ([]*models.EmergencyAlert, error) {
	r.mu.RLock()
	var out []*models.EmergencyAlert
	for _, alert := range r.alerts {
		if alert.RideID == rideID {
			out = append(out, copyAlert(alert))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *EmergencyRepository) Update(ctx context.Context, alert *models.EmergencyAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return models.ErrAlertNotFound
	}
	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

func copyAlert(a *models.EmergencyAlert) *models.EmergencyAlert {
	c := *a
	c.ContactsNotified = append([]string(nil), a.ContactsNotified...)
	return &c
}
