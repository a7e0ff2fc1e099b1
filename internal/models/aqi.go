package models

import "time"

// Coordinate is a validated latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Pollutant identifies a pollutant using the upstream provider's field names.
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm2_5"
	PollutantPM10 Pollutant = "pm10"
	PollutantO3   Pollutant = "ozone"
	PollutantNO2  Pollutant = "nitrogen_dioxide"
	PollutantSO2  Pollutant = "sulphur_dioxide"
	PollutantCO   Pollutant = "carbon_monoxide"
)

// Pollutants returns all supported pollutants in stable order. The order is
// used for deterministic dominant-pollutant tie breaking.
func Pollutants() []Pollutant {
	return []Pollutant{
		PollutantPM25,
		PollutantPM10,
		PollutantO3,
		PollutantNO2,
		PollutantSO2,
		PollutantCO,
	}
}

// QueryKind selects the granularity of an air-quality request.
type QueryKind string

const (
	KindCurrent QueryKind = "current"
	KindHourly  QueryKind = "hourly"
	KindDaily   QueryKind = "daily"
)

// Observation holds raw pollutant concentrations at a single point in time,
// plus the provider's own index values when present.
type Observation struct {
	Time           string                `json:"time"`
	Concentrations map[Pollutant]float64 `json:"concentrations"`
	Dust           *float64              `json:"dust,omitempty"`
	UVIndex        *float64              `json:"uvIndex,omitempty"`
	USAQI          *float64              `json:"usAqi,omitempty"`
	EuropeanAQI    *float64              `json:"europeanAqi,omitempty"`
}

// SubIndex is the EPA AQI value derived from one pollutant's concentration.
type SubIndex struct {
	Pollutant     Pollutant `json:"pollutant"`
	Concentration float64   `json:"concentration"`
	AQI           int       `json:"aqi"`
}

// Assessment is the computed AQI summary for one reading. Immutable once
// built; the service never mutates a stored assessment.
type Assessment struct {
	AQI               int        `json:"aqi"`
	Category          string     `json:"category"`
	Color             string     `json:"color"`
	HealthAdvice      string     `json:"healthAdvice"`
	DominantPollutant Pollutant  `json:"dominantPollutant,omitempty"`
	SubIndices        []SubIndex `json:"subIndices,omitempty"`
	Source            string     `json:"source,omitempty"`
}

// Series holds hourly or daily forecast arrays. Concentration slices are
// aligned with Times; nil entries mean the provider had no value for that
// step. AQI carries the per-step computed index, nil where incomputable.
type Series struct {
	Times          []string                 `json:"time"`
	Concentrations map[Pollutant][]*float64 `json:"concentrations"`
	AQI            []*int                   `json:"aqi,omitempty"`
}

// Report is the cacheable result of one air-quality query. Exactly one of
// Current/Hourly/Daily is set, matching Kind.
type Report struct {
	Coordinate Coordinate   `json:"location"`
	Kind       QueryKind    `json:"kind"`
	Timezone   string       `json:"timezone,omitempty"`
	Current    *Observation `json:"current,omitempty"`
	Assessment *Assessment  `json:"assessment,omitempty"`
	Hourly     *Series      `json:"hourly,omitempty"`
	Daily      *Series      `json:"daily,omitempty"`
	FetchedAt  time.Time    `json:"fetchedAt"`
	Cached     bool         `json:"cached,omitempty"` // Provenance: served from cache
}

// Place is a geocoding result for a city search.
type Place struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
	Admin1      string  `json:"admin1,omitempty"`
}
