package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ridepair/internal/models"
	"ridepair/internal/validators"
	"ridepair/pkg/logger"
	"ridepair/pkg/maps"
	"ridepair/pkg/metrics"
)

// SuggestionGenerator is the generative model behind route suggestions.
type SuggestionGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema map[string]interface{}, out interface{}) error
}

type SuggestionService interface {
	SuggestRoute(ctx context.Context, req *models.RouteSuggestionRequest) (*models.RouteSuggestion, error)
}

type suggestionService struct {
	generator SuggestionGenerator
	routes    maps.RouteEstimator
	logger    *logger.Logger
}

// NewSuggestionService accepts a nil generator (every call then fails with
// ErrSuggestionFailed) and a nil route estimator (distance must be supplied).
func NewSuggestionService(generator SuggestionGenerator, routes maps.RouteEstimator, log *logger.Logger) SuggestionService {
	return &suggestionService{
		generator: generator,
		routes:    routes,
		logger:    log,
	}
}

const suggestionSystemPrompt = `You are a route planner for a community ride sharing app used by students and colleagues.
Suggest the most practical two-wheeler route and a fair split of the fuel and toll cost between the driver and one passenger.
Answer only with JSON that matches the response schema.`

var suggestionSchema = map[string]interface{}{
	"type": "OBJECT",
	"properties": map[string]interface{}{
		"optimizedRouteDescription": map[string]interface{}{"type": "STRING"},
		"suggestedCostSplit":        map[string]interface{}{"type": "NUMBER"},
		"reasons":                   map[string]interface{}{"type": "STRING"},
	},
	"required": []string{"optimizedRouteDescription", "suggestedCostSplit", "reasons"},
}

type suggestionAnswer struct {
	OptimizedRouteDescription string  `json:"optimizedRouteDescription"`
	SuggestedCostSplit        float64 `json:"suggestedCostSplit"`
	Reasons                   string  `json:"reasons"`
}

// SuggestRoute makes a single attempt; any failure of the model surfaces as
// ErrSuggestionFailed without detail.
func (s *suggestionService) SuggestRoute(ctx context.Context, req *models.RouteSuggestionRequest) (result *models.RouteSuggestion, err error) {
	defer func() {
		metrics.SuggestionRequests.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if errs := validators.ValidateStruct(req); errs != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, errs.Error())
	}
	if s.generator == nil {
		return nil, models.ErrSuggestionFailed
	}

	input := *req
	if (input.DistanceKm == 0 || input.DurationMin == 0) && s.routes != nil {
		estimate, err := s.routes.Estimate(ctx, input.StartLocation, input.Destination)
		if err != nil {
			s.logger.WithError(err).Warn("route estimate unavailable, using caller values")
		} else {
			if input.DistanceKm == 0 {
				input.DistanceKm = estimate.DistanceKm
			}
			if input.DurationMin == 0 {
				input.DurationMin = estimate.DurationMin
			}
		}
	}

	var answer suggestionAnswer
	if err := s.generator.GenerateJSON(ctx, suggestionSystemPrompt, buildSuggestionPrompt(&input), suggestionSchema, &answer); err != nil {
		s.logger.WithError(err).Error("route suggestion failed")
		return nil, models.ErrSuggestionFailed
	}
	if strings.TrimSpace(answer.OptimizedRouteDescription) == "" || answer.SuggestedCostSplit < 0 || math.IsNaN(answer.SuggestedCostSplit) {
		s.logger.Warn("route suggestion returned an unusable answer")
		return nil, models.ErrSuggestionFailed
	}

	return &models.RouteSuggestion{
		OptimizedRouteDescription: answer.OptimizedRouteDescription,
		SuggestedCostSplit:        math.Round(answer.SuggestedCostSplit*100) / 100,
		Reasons:                   answer.Reasons,
	}, nil
}

// TripFuelCost is the fuel needed for the trip plus tolls.
func TripFuelCost(req *models.RouteSuggestionRequest) float64 {
	cost := req.DistanceKm / req.FuelEfficiency * req.FuelCostPerLiter
	if req.TollCost != nil {
		cost += *req.TollCost
	}
	return math.Round(cost*100) / 100
}

func buildSuggestionPrompt(req *models.RouteSuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Start location: %s\n", req.StartLocation)
	fmt.Fprintf(&b, "Destination: %s\n", req.Destination)
	fmt.Fprintf(&b, "Vehicle: %s\n", req.VehicleType)
	if req.DistanceKm > 0 {
		fmt.Fprintf(&b, "Distance: %.1f km\n", req.DistanceKm)
	}
	if req.DurationMin > 0 {
		fmt.Fprintf(&b, "Expected duration: %.0f minutes\n", req.DurationMin)
	}
	fmt.Fprintf(&b, "Fuel cost: %.2f per liter, fuel efficiency: %.1f km per liter\n", req.FuelCostPerLiter, req.FuelEfficiency)
	if req.TollCost != nil {
		fmt.Fprintf(&b, "Toll cost: %.2f\n", *req.TollCost)
	}
	if req.DistanceKm > 0 {
		fmt.Fprintf(&b, "Estimated total trip cost: %.2f\n", TripFuelCost(req))
	}
	b.WriteString("Suggest the optimized route, the amount the passenger should pay, and the reasons.")
	return b.String()
}
