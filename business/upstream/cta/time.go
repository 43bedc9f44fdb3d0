package cta

import (
	"time"
	_ "time/tzdata"
)

// chicago is the zone tracker timestamps are reported in
var chicago = loadChicago()

func loadChicago() *time.Location {
	location, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return location
}

func parseLocalTime(layout string, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, chicago)
}

// minutesUntil returns whole minutes from reference to arrival, truncated toward zero
func minutesUntil(reference time.Time, arrival time.Time) int {
	return int(arrival.Sub(reference).Minutes())
}
