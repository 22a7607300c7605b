package models

// Place is a named pickup/dropoff point. Coordinates are GeoJSON order:
// longitude first, latitude second.
type Place struct {
	Name        string    `json:"name" bson:"name" validate:"required,min=2,max=255"`
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,geo_point"`
	PlaceID     string    `json:"place_id" bson:"place_id"`
}

func (p Place) Latitude() float64 {
	if len(p.Coordinates) >= 2 {
		return p.Coordinates[1]
	}
	return 0
}

func (p Place) Longitude() float64 {
	if len(p.Coordinates) >= 1 {
		return p.Coordinates[0]
	}
	return 0
}
