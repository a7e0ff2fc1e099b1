package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/breatheasy/aqi-service/internal/models"
)

// TestValidateCoordinate verifies latitude/longitude bounds checking,
// including edge values and non-finite inputs.
func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr error
	}{
		{"valid", 40.7128, -74.006, nil},
		{"north pole", 90, 0, nil},
		{"south pole", -90, 0, nil},
		{"date line east", 0, 180, nil},
		{"date line west", 0, -180, nil},
		{"latitude too high", 90.1, 0, ErrLatitudeOutOfRange},
		{"latitude too low", -91, 0, ErrLatitudeOutOfRange},
		{"longitude too high", 0, 180.5, ErrLongitudeOutOfRange},
		{"longitude too low", 0, -181, ErrLongitudeOutOfRange},
		{"latitude NaN", math.NaN(), 0, ErrLatitudeOutOfRange},
		{"longitude Inf", 0, math.Inf(1), ErrLongitudeOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			coord, err := ValidateCoordinate(tc.lat, tc.lon)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateCoordinate(%v, %v) error = %v, want %v", tc.lat, tc.lon, err, tc.wantErr)
			}
			if err == nil && (coord.Latitude != tc.lat || coord.Longitude != tc.lon) {
				t.Errorf("ValidateCoordinate() = %+v, want lat=%v lon=%v", coord, tc.lat, tc.lon)
			}
		})
	}
}

// TestValidateKind verifies that only the three supported granularities pass.
func TestValidateKind(t *testing.T) {
	for _, valid := range []string{"current", "hourly", "daily"} {
		kind, err := ValidateKind(valid)
		if err != nil {
			t.Errorf("ValidateKind(%q) error = %v, want nil", valid, err)
		}
		if string(kind) != valid {
			t.Errorf("ValidateKind(%q) = %q", valid, kind)
		}
	}

	for _, invalid := range []string{"", "weekly", "CURRENT", "enhanced"} {
		if _, err := ValidateKind(invalid); !errors.Is(err, ErrInvalidKind) {
			t.Errorf("ValidateKind(%q) error = %v, want ErrInvalidKind", invalid, err)
		}
	}
}

// TestValidateWindow verifies window bounds are enforced only for the kind
// that uses them.
func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.QueryKind
		hours   int
		days    int
		wantErr error
	}{
		{"current ignores windows", models.KindCurrent, 0, 0, nil},
		{"hourly in range", models.KindHourly, 24, 0, nil},
		{"hourly max", models.KindHourly, 240, 0, nil},
		{"hourly zero", models.KindHourly, 0, 0, ErrHoursOutOfRange},
		{"hourly too large", models.KindHourly, 241, 0, ErrHoursOutOfRange},
		{"daily in range", models.KindDaily, 0, 7, nil},
		{"daily max", models.KindDaily, 0, 16, nil},
		{"daily too large", models.KindDaily, 0, 17, ErrDaysOutOfRange},
		{"daily ignores hours", models.KindDaily, 9999, 7, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateWindow(tc.kind, tc.hours, tc.days)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateWindow(%v, %d, %d) error = %v, want %v", tc.kind, tc.hours, tc.days, err, tc.wantErr)
			}
		})
	}
}
