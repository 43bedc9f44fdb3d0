package transit

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"reflect"
	"strconv"
	"strings"
)

// MaxSearchRadiusMiles is the largest radius accepted by a nearby stop search
const MaxSearchRadiusMiles = 2.0

// NearbyQuery is a nearby stop search around a point. Radius is in miles.
type NearbyQuery struct {
	Lat    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `json:"lon" validate:"gte=-180,lte=180"`
	Radius float64 `json:"radius" validate:"gt=0,lte=2"`
}

// queryFieldMessages field specific messages reported with InvalidInput
var queryFieldMessages = map[string]string{
	"lat":    "latitude must be a number between -90 and 90",
	"lon":    "longitude must be a number between -180 and 180",
	"radius": fmt.Sprintf("radius must be greater than 0 and no more than %g miles", MaxSearchRadiusMiles),
}

// validate is safe for concurrent use and caches struct metadata
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so messages match the wire format
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks NearbyQuery bounds, returns InvalidInput Error naming the first field out of range
func (q NearbyQuery) Validate() error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		field := validationErrors[0].Field()
		return InvalidField("validate nearby query", field, queryFieldMessages[field])
	}
	return NewError(InvalidInput, "validate nearby query", err)
}

// ParseNearbyQuery builds a NearbyQuery from text input, such as query parameters or command line values.
// Non-numeric input and out of range values are reported as InvalidInput.
func ParseNearbyQuery(lat, lon, radius string) (NearbyQuery, error) {
	var query NearbyQuery
	var err error
	if query.Lat, err = parseQueryValue("lat", lat); err != nil {
		return NearbyQuery{}, err
	}
	if query.Lon, err = parseQueryValue("lon", lon); err != nil {
		return NearbyQuery{}, err
	}
	if query.Radius, err = parseQueryValue("radius", radius); err != nil {
		return NearbyQuery{}, err
	}
	return query, query.Validate()
}

func parseQueryValue(field string, value string) (float64, error) {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, InvalidField("parse nearby query", field, queryFieldMessages[field])
	}
	return result, nil
}

// ValidateStops checks every stop against the Stop schema
func ValidateStops(stops []Stop) error {
	for i := range stops {
		if err := validate.Struct(stops[i]); err != nil {
			return fmt.Errorf("stop %d at index %d: %w", stops[i].StopId, i, err)
		}
	}
	return nil
}

// ValidateArrivals checks every arrival against the Arrival schema
func ValidateArrivals(arrivals []Arrival) error {
	for i := range arrivals {
		if err := validate.Struct(arrivals[i]); err != nil {
			return fmt.Errorf("arrival at index %d: %w", i, err)
		}
	}
	return nil
}
