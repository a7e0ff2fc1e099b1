package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/breatheasy/aqi-service/internal/models"
)

type mockFetcher struct {
	mu      sync.Mutex
	calls   []models.Coordinate
	failFor map[models.Coordinate]error
}

func (m *mockFetcher) GetCurrent(ctx context.Context, coord models.Coordinate) (models.Report, error) {
	m.mu.Lock()
	m.calls = append(m.calls, coord)
	m.mu.Unlock()
	if err, ok := m.failFor[coord]; ok {
		return models.Report{}, err
	}
	return models.Report{Coordinate: coord, Kind: models.KindCurrent}, nil
}

// TestWarmer_Warm verifies every configured coordinate is fetched once.
func TestWarmer_Warm(t *testing.T) {
	fetcher := &mockFetcher{}
	w := NewWarmer(fetcher, nil)

	coords := []models.Coordinate{
		{Latitude: 47.6062, Longitude: -122.3321},
		{Latitude: 40.7128, Longitude: -74.006},
		{Latitude: 51.5074, Longitude: -0.1278},
	}
	if err := w.Warm(context.Background(), coords); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	if len(fetcher.calls) != len(coords) {
		t.Errorf("fetcher called %d times, want %d", len(fetcher.calls), len(coords))
	}
}

// TestWarmer_Warm_PartialFailure verifies a failing location produces an
// aggregated error but does not stop the other locations from warming.
func TestWarmer_Warm_PartialFailure(t *testing.T) {
	bad := models.Coordinate{Latitude: 0, Longitude: 0}
	fetcher := &mockFetcher{
		failFor: map[models.Coordinate]error{bad: errors.New("upstream down")},
	}
	w := NewWarmer(fetcher, nil)

	coords := []models.Coordinate{
		{Latitude: 47.6062, Longitude: -122.3321},
		bad,
		{Latitude: 51.5074, Longitude: -0.1278},
	}
	err := w.Warm(context.Background(), coords)
	if err == nil {
		t.Fatal("Warm() error = nil, want aggregated error")
	}
	if len(fetcher.calls) != len(coords) {
		t.Errorf("fetcher called %d times, want %d (failure must not abort the batch)", len(fetcher.calls), len(coords))
	}
}

// TestWarmer_Schedule_NoLocations verifies scheduling with an empty list is a no-op.
func TestWarmer_Schedule_NoLocations(t *testing.T) {
	w := NewWarmer(&mockFetcher{}, nil)
	defer w.Stop()
	if err := w.Schedule(nil, 0); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
}
