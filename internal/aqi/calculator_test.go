package aqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheasy/aqi-service/internal/models"
)

func TestSubIndex_BreakpointBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		pollutant models.Pollutant
		conc      float64
		want      int
	}{
		{"pm2.5 zero", models.PollutantPM25, 0, 0},
		{"pm2.5 exactly 12.0 is AQI 50", models.PollutantPM25, 12.0, 50},
		{"pm2.5 top of moderate", models.PollutantPM25, 35.4, 100},
		{"pm2.5 bottom of moderate", models.PollutantPM25, 12.1, 51},
		{"pm10 boundary", models.PollutantPM10, 54, 50},
		{"ozone boundary", models.PollutantO3, 54, 50},
		{"no2 boundary", models.PollutantNO2, 53, 50},
		{"so2 boundary", models.PollutantSO2, 35, 50},
		{"co boundary", models.PollutantCO, 4400, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SubIndex(tc.pollutant, tc.conc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSubIndex_Interpolation(t *testing.T) {
	// Midpoint of the pm2.5 Good bracket: 6.0 of [0,12.0] -> 25.
	got, err := SubIndex(models.PollutantPM25, 6.0)
	require.NoError(t, err)
	assert.Equal(t, 25, got)
}

func TestSubIndex_GapBetweenBrackets(t *testing.T) {
	// 12.05 falls between the Good bracket top (12.0) and the Moderate
	// bracket bottom (12.1); it floors to the Moderate lower bound.
	got, err := SubIndex(models.PollutantPM25, 12.05)
	require.NoError(t, err)
	assert.Equal(t, 51, got)
}

func TestSubIndex_ClampsAboveTopBreakpoint(t *testing.T) {
	got, err := SubIndex(models.PollutantPM25, 1000)
	require.NoError(t, err)
	assert.Equal(t, 500, got)
	assert.Equal(t, "Hazardous", CategoryFor(got).Name)
}

func TestSubIndex_RejectsNegativeConcentration(t *testing.T) {
	_, err := SubIndex(models.PollutantPM25, -1)
	assert.ErrorIs(t, err, ErrNegativeConcentration)
}

func TestSubIndex_UnknownPollutant(t *testing.T) {
	_, err := SubIndex(models.Pollutant("dust"), 10)
	assert.ErrorIs(t, err, ErrUnknownPollutant)
}

func TestEvaluate_DominantPollutant(t *testing.T) {
	// Concentrations chosen to yield sub-indices pm2.5=78, ozone=42, no2=28.
	assessment, err := Evaluate(map[models.Pollutant]float64{
		models.PollutantPM25: 25.0,
		models.PollutantO3:   45.0,
		models.PollutantNO2:  30.0,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PollutantPM25, assessment.DominantPollutant)
	assert.Equal(t, 78, assessment.AQI)
	assert.Equal(t, "Moderate", assessment.Category)
	assert.Equal(t, "#FFFF00", assessment.Color)
	assert.Len(t, assessment.SubIndices, 3)
}

func TestEvaluate_Deterministic(t *testing.T) {
	reading := map[models.Pollutant]float64{
		models.PollutantPM25: 17.3,
		models.PollutantPM10: 41.0,
		models.PollutantSO2:  12.5,
	}
	first, err := Evaluate(reading)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Evaluate(reading)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluate_NegativeFailsReading(t *testing.T) {
	_, err := Evaluate(map[models.Pollutant]float64{
		models.PollutantPM25: 10,
		models.PollutantO3:   -5,
	})
	assert.ErrorIs(t, err, ErrNegativeConcentration)
}

func TestEvaluate_EmptyReading(t *testing.T) {
	_, err := Evaluate(map[models.Pollutant]float64{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCategoryFor_Bands(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "Good"},
		{50, "Good"},
		{51, "Moderate"},
		{100, "Moderate"},
		{101, "Unhealthy for Sensitive Groups"},
		{150, "Unhealthy for Sensitive Groups"},
		{151, "Unhealthy"},
		{200, "Unhealthy"},
		{201, "Very Unhealthy"},
		{300, "Very Unhealthy"},
		{301, "Hazardous"},
		{500, "Hazardous"},
		{9999, "Hazardous"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CategoryFor(tc.index).Name, "index %d", tc.index)
	}
}

func TestSeriesIndices(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	series := models.Series{
		Times: []string{"2026-08-30T00:00", "2026-08-30T01:00", "2026-08-30T02:00"},
		Concentrations: map[models.Pollutant][]*float64{
			models.PollutantPM25: {f(6.0), nil, f(25.0)},
			models.PollutantO3:   {f(27.0), nil, f(45.0)},
		},
	}

	got := SeriesIndices(series)
	require.Len(t, got, 3)

	require.NotNil(t, got[0])
	assert.Equal(t, 25, *got[0]) // max(pm2.5=25, o3=25)
	assert.Nil(t, got[1])        // no data for the step
	require.NotNil(t, got[2])
	assert.Equal(t, 78, *got[2]) // pm2.5 dominates
}
