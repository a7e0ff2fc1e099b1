// Package aqi converts raw pollutant concentrations into US EPA Air Quality
// Index values. All functions are pure: the same reading always produces the
// same result.
package aqi

import (
	"errors"
	"fmt"
	"math"

	"github.com/breatheasy/aqi-service/internal/models"
)

var (
	// ErrUnknownPollutant is returned for pollutants with no breakpoint table.
	ErrUnknownPollutant = errors.New("unknown pollutant")

	// ErrNegativeConcentration is returned for concentrations below zero.
	// Negative readings are rejected rather than clamped; a sensor reporting
	// below zero is broken, not clean.
	ErrNegativeConcentration = errors.New("negative concentration")

	// ErrNoData is returned by Evaluate when a reading contains no pollutant
	// the calculator supports.
	ErrNoData = errors.New("no computable pollutant in reading")
)

// maxIndex is the top of the EPA scale. Concentrations above the highest
// breakpoint clamp here deterministically.
const maxIndex = 500

// SubIndex computes the EPA AQI sub-index for a single pollutant
// concentration using linear interpolation within the bracket containing it:
//
//	index = (IHigh-ILow)/(CHigh-CLow) * (C-CLow) + ILow
//
// Concentrations above the top breakpoint clamp to 500. Concentrations that
// fall in the gap between two brackets (the tables step, e.g. 12.0 to 12.1
// for PM2.5) interpolate within the bracket above the gap, with the
// concentration floored at that bracket's lower bound.
func SubIndex(pollutant models.Pollutant, concentration float64) (int, error) {
	table, ok := breakpoints[pollutant]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPollutant, pollutant)
	}
	if concentration < 0 || math.IsNaN(concentration) {
		return 0, fmt.Errorf("%w: %s=%v", ErrNegativeConcentration, pollutant, concentration)
	}

	for _, bp := range table {
		if concentration <= bp.CHigh {
			c := concentration
			if c < bp.CLow {
				c = bp.CLow
			}
			index := float64(bp.IHigh-bp.ILow)/(bp.CHigh-bp.CLow)*(c-bp.CLow) + float64(bp.ILow)
			return int(math.Round(index)), nil
		}
	}
	return maxIndex, nil
}

// Evaluate maps a set of pollutant concentrations to an Assessment: one
// sub-index per supported pollutant, the dominant pollutant (maximum
// sub-index, first in stable pollutant order on ties), and the matching
// category band. Pollutants absent from the reading are skipped; a negative
// concentration fails the whole reading.
func Evaluate(concentrations map[models.Pollutant]float64) (models.Assessment, error) {
	var subIndices []models.SubIndex
	for _, p := range models.Pollutants() {
		c, ok := concentrations[p]
		if !ok {
			continue
		}
		index, err := SubIndex(p, c)
		if err != nil {
			return models.Assessment{}, err
		}
		subIndices = append(subIndices, models.SubIndex{
			Pollutant:     p,
			Concentration: c,
			AQI:           index,
		})
	}
	if len(subIndices) == 0 {
		return models.Assessment{}, ErrNoData
	}

	dominant := subIndices[0]
	for _, si := range subIndices[1:] {
		if si.AQI > dominant.AQI {
			dominant = si
		}
	}

	cat := CategoryFor(dominant.AQI)
	return models.Assessment{
		AQI:               dominant.AQI,
		Category:          cat.Name,
		Color:             cat.Color,
		HealthAdvice:      cat.HealthAdvice,
		DominantPollutant: dominant.Pollutant,
		SubIndices:        subIndices,
		Source:            "computed",
	}, nil
}

// SeriesIndices computes the per-step AQI for a forecast series: for each
// time step, the maximum sub-index across all pollutants with a value at
// that step. Steps with no usable value (missing or negative) yield nil.
func SeriesIndices(series models.Series) []*int {
	out := make([]*int, len(series.Times))
	for step := range series.Times {
		var best *int
		for _, p := range models.Pollutants() {
			values, ok := series.Concentrations[p]
			if !ok || step >= len(values) || values[step] == nil {
				continue
			}
			index, err := SubIndex(p, *values[step])
			if err != nil {
				continue
			}
			if best == nil || index > *best {
				v := index
				best = &v
			}
		}
		out[step] = best
	}
	return out
}
