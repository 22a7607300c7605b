package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", request.Origin.Latitude, request.Origin.Longitude),
		Destination: fmt.Sprintf("%f,%f", request.Destination.Latitude, request.Destination.Longitude),
		Mode:        maps.Mode(request.Mode),
	}

	if len(request.Waypoints) > 0 {
		waypoints := make([]string, len(request.Waypoints))
		for i, wp := range request.Waypoints {
			waypoints[i] = fmt.Sprintf("%f,%f", wp.Latitude, wp.Longitude)
		}
		req.Waypoints = waypoints
	}

	resp, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}

	routes := make([]Route, len(resp))
	for i, route := range resp {
		routes[i] = Route{
			Summary: route.Summary,
			Distance: Distance{
				Text:  route.Legs[0].Distance.HumanReadable,
				Value: float64(route.Legs[0].Distance.Meters),
			},
			Duration: Duration{
				Text:  route.Legs[0].Duration.String(),
				Value: int(route.Legs[0].Duration.Seconds()),
			},
			Polyline: route.OverviewPolyline.Points,
			Bounds: Bounds{
				Northeast: Location{
					Latitude:  route.Bounds.NorthEast.Lat,
					Longitude: route.Bounds.NorthEast.Lng,
				},
				Southwest: Location{
					Latitude:  route.Bounds.SouthWest.Lat,
					Longitude: route.Bounds.SouthWest.Lng,
				},
			},
		}
	}

	return &DirectionsResponse{Routes: routes}, nil
}
