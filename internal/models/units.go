package models

import "math"

const absoluteZeroC = 273.15

// KelvinToCelsius converts k to Celsius, rounded to 2 decimal places.
func KelvinToCelsius(k float64) float64 {
	return math.Round((k-absoluteZeroC)*100) / 100
}
