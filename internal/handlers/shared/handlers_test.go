package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/config"
	handlers "ridepair/internal/handlers/shared"
	"ridepair/internal/middleware"
	"ridepair/internal/repositories/memory"
	"ridepair/internal/services"
	"ridepair/pkg/cache"
	"ridepair/pkg/identity"
	"ridepair/pkg/logger"
	"ridepair/routes"
)

const (
	testSecret = "handler-test-secret"
	testIssuer = "ridepair-test"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiFixture struct {
	router *gin.Engine
	issuer *identity.JWTIssuer
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	c := cache.NewMemoryCache()
	store := memory.NewRideStore()
	notificationRepo := memory.NewNotificationRepository()
	broadcaster := services.NewRealtimeBroadcaster(c, log)

	notifier := services.NewNotificationService(notificationRepo, 64, time.Second, log, services.NewRepositorySink(notificationRepo))
	rideService := services.NewRideService(store, c, notifier, &config.LifecycleConfig{
		CommitAttempts: 3,
		OTPMaxAttempts: 5,
		OTPWindow:      10 * time.Minute,
	}, log)
	chatService := services.NewChatService(store, memory.NewChatRepository(), broadcaster, notifier, log)
	emergencyService := services.NewEmergencyService(store, memory.NewEmergencyRepository(), nil, nil, broadcaster, notifier, log)

	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestIDMiddleware())
	auth := middleware.AuthRequired(identity.NewJWTVerifier(testSecret, testIssuer), log)
	v1 := router.Group("/api/v1")
	routes.SetupRideRoutes(v1, auth,
		handlers.NewRideHandler(rideService, log),
		handlers.NewChatHandler(chatService, log),
		handlers.NewEmergencyHandler(emergencyService, log))
	routes.SetupRequestRoutes(v1, auth, handlers.NewRequestHandler(rideService, log))
	routes.SetupNotificationRoutes(v1, auth, handlers.NewNotificationHandler(notifier, services.NewDeviceService(c, log), log))
	routes.SetupSuggestionRoutes(v1, auth, handlers.NewSuggestionHandler(services.NewSuggestionService(nil, nil, log), log))

	return &apiFixture{
		router: router,
		issuer: identity.NewJWTIssuer(testSecret, testIssuer, time.Hour),
	}
}

func (f *apiFixture) do(t *testing.T, user, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := f.issuer.Issue(identity.User{ID: user})
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid response body %q", method, path, w.Body.String())
	}
	return w.Code, env
}

type idOnly struct {
	ID string `json:"id"`
}

type rideView struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RideOTP     string `json:"ride_otp"`
	OTPVerified bool   `json:"otp_verified"`
}

func decode(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
}

func offerBody() map[string]interface{} {
	return map[string]interface{}{
		"from_location": "North Campus",
		"to_location":   "Central Station",
		"date_time":     time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"shared_cost":   40,
		"vehicle_type":  "Scooty",
	}
}

// confirmedRide creates an offer by driver-1 and accepts passenger-1's request.
func (f *apiFixture) confirmedRide(t *testing.T) string {
	t.Helper()

	code, env := f.do(t, "driver-1", http.MethodPost, "/api/v1/rides/offers", offerBody())
	if code != http.StatusCreated {
		t.Fatalf("Create offer: expected 201, got %d (%+v)", code, env.Error)
	}
	var ride idOnly
	decode(t, env, &ride)

	code, env = f.do(t, "passenger-1", http.MethodPost, "/api/v1/rides/"+ride.ID+"/join", nil)
	if code != http.StatusCreated {
		t.Fatalf("Join: expected 201, got %d (%+v)", code, env.Error)
	}
	var request idOnly
	decode(t, env, &request)

	code, env = f.do(t, "driver-1", http.MethodPost, "/api/v1/join-requests/"+request.ID+"/accept", nil)
	if code != http.StatusOK {
		t.Fatalf("Accept: expected 200, got %d (%+v)", code, env.Error)
	}
	return ride.ID
}

func TestAuthRequired(t *testing.T) {
	f := setupAPI(t)

	code, env := f.do(t, "", http.MethodGet, "/api/v1/rides/open", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", code)
	}
	if env.Error == nil || env.Error.Code == "" {
		t.Errorf("Expected an error envelope, got %+v", env)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rides/open", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a forged token, got %d", w.Code)
	}
}

func TestCreateOffer_Validation(t *testing.T) {
	f := setupAPI(t)

	body := offerBody()
	body["to_location"] = "   "
	code, env := f.do(t, "driver-1", http.MethodPost, "/api/v1/rides/offers", body)
	if code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", code)
	}
	if env.Status != "error" {
		t.Errorf("Expected error status, got %q", env.Status)
	}

	body = offerBody()
	body["vehicle_type"] = "Truck"
	if code, _ := f.do(t, "driver-1", http.MethodPost, "/api/v1/rides/offers", body); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown vehicle type, got %d", code)
	}
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	f := setupAPI(t)
	rideID := f.confirmedRide(t)
	base := "/api/v1/rides/" + rideID

	// Only the passenger sees the ride code.
	_, env := f.do(t, "passenger-1", http.MethodGet, base, nil)
	var passengerView rideView
	decode(t, env, &passengerView)
	if passengerView.Status != "confirmed" || len(passengerView.RideOTP) != 4 {
		t.Fatalf("Unexpected passenger view %+v", passengerView)
	}
	_, env = f.do(t, "driver-1", http.MethodGet, base, nil)
	var driverView rideView
	decode(t, env, &driverView)
	if driverView.RideOTP != "" {
		t.Error("Driver view must not include the ride code")
	}

	if code, _ := f.do(t, "stranger", http.MethodGet, base, nil); code != http.StatusForbidden {
		t.Errorf("Expected 403 for a stranger on a confirmed ride, got %d", code)
	}
	_, env = f.do(t, "stranger", http.MethodGet, base+"/access", nil)
	var access struct {
		CanAccess bool `json:"can_access"`
	}
	decode(t, env, &access)
	if access.CanAccess {
		t.Error("Stranger must not have access")
	}

	// Code verification.
	if code, _ := f.do(t, "driver-1", http.MethodPost, base+"/verify-otp", map[string]string{"otp": "12ab"}); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed code, got %d", code)
	}
	wrong := "0000"
	if passengerView.RideOTP == wrong {
		wrong = "1111"
	}
	if code, env := f.do(t, "driver-1", http.MethodPost, base+"/verify-otp", map[string]string{"otp": wrong}); code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for a wrong code, got %d (%+v)", code, env.Error)
	}
	if code, _ := f.do(t, "passenger-1", http.MethodPost, base+"/verify-otp", map[string]string{"otp": passengerView.RideOTP}); code != http.StatusForbidden {
		t.Errorf("Expected 403 when the passenger verifies, got %d", code)
	}
	code, env := f.do(t, "driver-1", http.MethodPost, base+"/verify-otp", map[string]string{"otp": passengerView.RideOTP})
	if code != http.StatusOK {
		t.Fatalf("Expected 200 for the right code, got %d (%+v)", code, env.Error)
	}

	// Two-sided start and completion.
	for _, step := range []struct {
		user, path, status string
	}{
		{"driver-1", "/start", "confirmed"},
		{"passenger-1", "/start", "in-progress"},
		{"passenger-1", "/complete", "in-progress"},
		{"driver-1", "/complete", "completed"},
	} {
		code, env := f.do(t, step.user, http.MethodPost, base+step.path, nil)
		if code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d (%+v)", step.user, step.path, code, env.Error)
		}
		var view rideView
		decode(t, env, &view)
		if view.Status != step.status {
			t.Errorf("%s %s: expected %s, got %s", step.user, step.path, step.status, view.Status)
		}
	}

	if code, _ := f.do(t, "driver-1", http.MethodPost, base+"/cancel", map[string]string{"reason": "late"}); code != http.StatusConflict {
		t.Errorf("Expected 409 cancelling a completed ride, got %d", code)
	}
}

func TestJoinErrors(t *testing.T) {
	f := setupAPI(t)

	code, env := f.do(t, "driver-1", http.MethodPost, "/api/v1/rides/offers", offerBody())
	if code != http.StatusCreated {
		t.Fatalf("Create offer: expected 201, got %d", code)
	}
	var ride idOnly
	decode(t, env, &ride)
	join := "/api/v1/rides/" + ride.ID + "/join"

	if code, _ := f.do(t, "passenger-1", http.MethodPost, join, map[string]string{"message": "near the gate"}); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}
	if code, _ := f.do(t, "passenger-1", http.MethodPost, join, nil); code != http.StatusConflict {
		t.Errorf("Expected 409 for a duplicate request, got %d", code)
	}
	if code, _ := f.do(t, "driver-1", http.MethodPost, join, nil); code == http.StatusCreated {
		t.Error("Driver must not join their own ride")
	}

	if code, _ := f.do(t, "passenger-1", http.MethodGet, "/api/v1/rides/not-an-id", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed id, got %d", code)
	}
	missing := "/api/v1/rides/" + primitive.NewObjectID().Hex()
	if code, _ := f.do(t, "passenger-1", http.MethodGet, missing, nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown ride, got %d", code)
	}
}

func TestRideVisibility(t *testing.T) {
	f := setupAPI(t)

	code, env := f.do(t, "driver-1", http.MethodPost, "/api/v1/rides/offers", offerBody())
	if code != http.StatusCreated {
		t.Fatalf("Create offer: expected 201, got %d", code)
	}
	var open idOnly
	decode(t, env, &open)

	// Open rides stay browsable so passengers can find them before joining.
	if code, _ := f.do(t, "stranger", http.MethodGet, "/api/v1/rides/"+open.ID, nil); code != http.StatusOK {
		t.Errorf("Expected 200 for an open offer, got %d", code)
	}
	if code, _ := f.do(t, "stranger", http.MethodGet, "/api/v1/rides/open?page=4611686018427387904", nil); code != http.StatusOK {
		t.Errorf("Expected 200 past the last page, got %d", code)
	}

	matched := f.confirmedRide(t)
	if code, _ := f.do(t, "stranger", http.MethodGet, "/api/v1/rides/"+matched, nil); code != http.StatusForbidden {
		t.Errorf("Expected 403 for a matched ride, got %d", code)
	}
	if code, _ := f.do(t, "passenger-1", http.MethodGet, "/api/v1/rides/"+matched, nil); code != http.StatusOK {
		t.Errorf("Expected 200 for the passenger, got %d", code)
	}
}

func TestChatRequiresParticipation(t *testing.T) {
	f := setupAPI(t)
	rideID := f.confirmedRide(t)
	messages := "/api/v1/rides/" + rideID + "/messages"

	if code, env := f.do(t, "passenger-1", http.MethodPost, messages, map[string]string{"text": "At the gate"}); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%+v)", code, env.Error)
	}
	if code, _ := f.do(t, "stranger", http.MethodPost, messages, map[string]string{"text": "hi"}); code != http.StatusForbidden {
		t.Errorf("Expected 403 for a stranger, got %d", code)
	}
	if code, _ := f.do(t, "driver-1", http.MethodPost, messages, map[string]string{"text": "  "}); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a blank message, got %d", code)
	}
}

func TestDevicesAndSuggestions(t *testing.T) {
	f := setupAPI(t)

	if code, _ := f.do(t, "passenger-1", http.MethodPut, "/api/v1/devices", map[string]string{"platform": "web", "token": "abc"}); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown platform, got %d", code)
	}
	if code, env := f.do(t, "passenger-1", http.MethodPut, "/api/v1/devices", map[string]string{"platform": "android", "token": "abc"}); code != http.StatusOK {
		t.Errorf("Expected 200, got %d (%+v)", code, env.Error)
	}

	body := map[string]interface{}{
		"start_location":      "North Campus",
		"destination":         "Central Station",
		"vehicle_type":        "Bike",
		"distance_km":         12,
		"fuel_cost_per_liter": 100,
		"fuel_efficiency":     40,
	}
	if code, _ := f.do(t, "passenger-1", http.MethodPost, "/api/v1/suggestions/route", body); code != http.StatusBadGateway {
		t.Errorf("Expected 502 without a model, got %d", code)
	}
}
