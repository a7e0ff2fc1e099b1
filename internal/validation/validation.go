package validation

import (
	"errors"
	"math"

	"github.com/breatheasy/aqi-service/internal/models"
)

// ErrLatitudeOutOfRange is returned when latitude is outside [-90, 90].
var ErrLatitudeOutOfRange = errors.New("latitude must be between -90 and 90")

// ErrLongitudeOutOfRange is returned when longitude is outside [-180, 180].
var ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")

// ErrInvalidKind is returned when the query kind is not current, hourly or daily.
var ErrInvalidKind = errors.New("type must be current, hourly or daily")

// ErrHoursOutOfRange is returned when the hourly window is outside [1, 240].
var ErrHoursOutOfRange = errors.New("hours must be between 1 and 240")

// ErrDaysOutOfRange is returned when the daily window is outside [1, 16].
var ErrDaysOutOfRange = errors.New("days must be between 1 and 16")

// MaxForecastHours and MaxForecastDays mirror the upstream provider's limits.
const (
	MaxForecastHours = 240
	MaxForecastDays  = 16
)

// ValidateCoordinate checks latitude/longitude bounds and rejects NaN/Inf.
// Returns the Coordinate or an error suitable for 400 INVALID_COORDINATE
// responses; validation happens before any network call.
func ValidateCoordinate(lat, lon float64) (models.Coordinate, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return models.Coordinate{}, ErrLatitudeOutOfRange
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return models.Coordinate{}, ErrLongitudeOutOfRange
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ValidateKind checks the query kind string and returns the typed kind.
func ValidateKind(kind string) (models.QueryKind, error) {
	switch models.QueryKind(kind) {
	case models.KindCurrent, models.KindHourly, models.KindDaily:
		return models.QueryKind(kind), nil
	}
	return "", ErrInvalidKind
}

// ValidateWindow checks the hours/days window for the given kind. Windows
// for other kinds are ignored (the service only forwards the relevant one).
func ValidateWindow(kind models.QueryKind, hours, days int) error {
	switch kind {
	case models.KindHourly:
		if hours < 1 || hours > MaxForecastHours {
			return ErrHoursOutOfRange
		}
	case models.KindDaily:
		if days < 1 || days > MaxForecastDays {
			return ErrDaysOutOfRange
		}
	}
	return nil
}
