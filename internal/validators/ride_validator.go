package validators

import (
	"strings"
	"time"

	"ridepair/internal/models"
)

type CreateRideRequest struct {
	FromLocation string    `json:"from_location" validate:"not_blank,max=200"`
	ToLocation   string    `json:"to_location" validate:"not_blank,max=200"`
	DateTime     time.Time `json:"date_time" validate:"required,recent_date"`
	SharedCost   float64   `json:"shared_cost" validate:"min=0,max=100000"`
	VehicleType  string    `json:"vehicle_type" validate:"omitempty,vehicle_type"`
	Notes        string    `json:"notes" validate:"omitempty,max=500"`
}

func (r *CreateRideRequest) Details() models.RideDetails {
	return models.RideDetails{
		FromLocation: strings.TrimSpace(r.FromLocation),
		ToLocation:   strings.TrimSpace(r.ToLocation),
		DateTime:     r.DateTime.UTC(),
		SharedCost:   r.SharedCost,
		VehicleType:  models.VehicleType(r.VehicleType),
		Notes:        strings.TrimSpace(r.Notes),
	}
}

type JoinRideRequest struct {
	Message string `json:"message" validate:"omitempty,max=300"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,ride_otp"`
}

type CancelRideRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=300"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"not_blank,max=1000"`
}

type RaiseEmergencyRequest struct {
	Message   string   `json:"message" validate:"omitempty,max=500"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Contacts  []string `json:"contacts" validate:"omitempty,max=5,dive,phone_number"`
}

type RegisterDeviceRequest struct {
	Platform string `json:"platform" validate:"required,oneof=android ios"`
	Token    string `json:"token" validate:"not_blank,max=4096"`
}
