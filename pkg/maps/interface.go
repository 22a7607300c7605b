package maps

import "context"

// Provider computes driving routes for the live tracking view. Only
// directions are needed here; place search and geocoding live in the client
// apps.
type Provider interface {
	GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DirectionsRequest struct {
	Origin      Location   `json:"origin"`
	Destination Location   `json:"destination"`
	Waypoints   []Location `json:"waypoints,omitempty"`
	Mode        string     `json:"mode"` // driving, walking, bicycling, transit
}

type DirectionsResponse struct {
	Routes []Route `json:"routes"`
}

type Route struct {
	Summary  string   `json:"summary"`
	Distance Distance `json:"distance"`
	Duration Duration `json:"duration"`
	Polyline string   `json:"overview_polyline"`
	Bounds   Bounds   `json:"bounds"`
}

type Distance struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"` // in meters
}

type Duration struct {
	Text  string `json:"text"`
	Value int    `json:"value"` // in seconds
}

type Bounds struct {
	Northeast Location `json:"northeast"`
	Southwest Location `json:"southwest"`
}
