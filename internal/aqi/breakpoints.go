package aqi

import "github.com/breatheasy/aqi-service/internal/models"

// breakpoint is one bracket of the EPA piecewise-linear AQI scale:
// concentrations in [CLow, CHigh] map onto indices [ILow, IHigh].
type breakpoint struct {
	CLow, CHigh float64
	ILow, IHigh int
}

// breakpoints holds the EPA AQI brackets per pollutant. PM concentrations are
// µg/m³; gas concentrations follow the upstream provider's µg/m³ scale.
var breakpoints = map[models.Pollutant][]breakpoint{
	models.PollutantPM25: {
		{0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 350.4, 301, 400},
		{350.5, 500.4, 401, 500},
	},
	models.PollutantPM10: {
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 504, 301, 400},
		{505, 604, 401, 500},
	},
	models.PollutantO3: {
		{0, 54, 0, 50},
		{55, 70, 51, 100},
		{71, 85, 101, 150},
		{86, 105, 151, 200},
		{106, 200, 201, 300},
		{201, 400, 301, 400},
	},
	models.PollutantNO2: {
		{0, 53, 0, 50},
		{54, 100, 51, 100},
		{101, 360, 101, 150},
		{361, 649, 151, 200},
		{650, 1249, 201, 300},
		{1250, 2049, 301, 400},
	},
	models.PollutantSO2: {
		{0, 35, 0, 50},
		{36, 75, 51, 100},
		{76, 185, 101, 150},
		{186, 304, 151, 200},
		{305, 604, 201, 300},
		{605, 1004, 301, 400},
	},
	models.PollutantCO: {
		{0, 4400, 0, 50},
		{4401, 9400, 51, 100},
		{9401, 12400, 101, 150},
		{12401, 15400, 151, 200},
		{15401, 30400, 201, 300},
		{30401, 50400, 301, 400},
	},
}

// Category is one band of the EPA AQI scale with its display color and
// standard health advice.
type Category struct {
	Name         string
	Color        string
	HealthAdvice string
}

// categories lists the AQI bands in ascending order; Upper is the inclusive
// top index of each band.
var categories = []struct {
	Upper int
	Category
}{
	{50, Category{"Good", "#00E400",
		"Air quality is satisfactory, and air pollution poses little or no risk."}},
	{100, Category{"Moderate", "#FFFF00",
		"Air quality is acceptable. However, there may be a risk for some people, particularly those who are unusually sensitive to air pollution."}},
	{150, Category{"Unhealthy for Sensitive Groups", "#FF7E00",
		"Members of sensitive groups may experience health effects. The general public is less likely to be affected."}},
	{200, Category{"Unhealthy", "#FF0000",
		"Some members of the general public may experience health effects; members of sensitive groups may experience more serious health effects."}},
	{300, Category{"Very Unhealthy", "#8F3F97",
		"Health alert: The risk of health effects is increased for everyone."}},
	{500, Category{"Hazardous", "#7E0023",
		"Health warning of emergency conditions: everyone is more likely to be affected."}},
}

// CategoryFor returns the AQI band containing the given index. Indices above
// 500 fall into Hazardous.
func CategoryFor(index int) Category {
	for _, band := range categories {
		if index <= band.Upper {
			return band.Category
		}
	}
	return categories[len(categories)-1].Category
}
