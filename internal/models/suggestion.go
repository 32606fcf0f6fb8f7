package models

// RouteSuggestionRequest is the structured input forwarded to the generative model.
type RouteSuggestionRequest struct {
	StartLocation    string      `json:"start_location" validate:"required,max=200"`
	Destination      string      `json:"destination" validate:"required,max=200"`
	VehicleType      VehicleType `json:"vehicle_type" validate:"required,oneof=Bike Scooty"`
	DistanceKm       float64     `json:"distance_km" validate:"gte=0,lte=1000"`
	DurationMin      float64     `json:"duration_min" validate:"gte=0,lte=1440"`
	FuelCostPerLiter float64     `json:"fuel_cost_per_liter" validate:"gt=0"`
	FuelEfficiency   float64     `json:"fuel_efficiency" validate:"gt=0"`
	TollCost         *float64    `json:"toll_cost,omitempty" validate:"omitempty,gte=0"`
}

type RouteSuggestion struct {
	OptimizedRouteDescription string  `json:"optimized_route_description"`
	SuggestedCostSplit        float64 `json:"suggested_cost_split"`
	Reasons                   string  `json:"reasons"`
}
