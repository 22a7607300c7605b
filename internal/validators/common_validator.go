package validators

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("future_date", validateFutureDate)
	validate.RegisterValidation("geo_point", validateGeoPoint)
}

// ValidateStruct runs the registered rules and returns per-field messages, or
// nil when the value is valid.
func ValidateStruct(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[strings.ToLower(fe.Field())] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "future_date":
		return "must be a time in the future"
	case "geo_point":
		return "must be a [longitude, latitude] pair"
	default:
		return fmt.Sprintf("failed on rule %q", fe.Tag())
	}
}

func validateFutureDate(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(time.Now())
}

// validateGeoPoint accepts a GeoJSON coordinate pair, longitude first.
func validateGeoPoint(fl validator.FieldLevel) bool {
	coords, ok := fl.Field().Interface().([]float64)
	if !ok || len(coords) != 2 {
		return false
	}
	lng, lat := coords[0], coords[1]
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
