package audio

import (
	"fmt"
	"math"
	"strconv"
)

// SpeedSteps are the rates offered by the speed control.
var SpeedSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// nearestStep returns the index of the step closest to speed.
func nearestStep(speed float64) int {
	nearest := 0
	minDiff := math.MaxFloat64
	for i, step := range SpeedSteps {
		if diff := math.Abs(step - speed); diff < minDiff {
			minDiff = diff
			nearest = i
		}
	}
	return nearest
}

// NearestSpeed snaps speed to a step.
func NearestSpeed(speed float64) float64 {
	return SpeedSteps[nearestStep(speed)]
}

// NextSpeed returns the step above speed, or the fastest step.
func NextSpeed(speed float64) float64 {
	i := nearestStep(speed)
	if i < len(SpeedSteps)-1 {
		i++
	}
	return SpeedSteps[i]
}

// PreviousSpeed returns the step below speed, or the slowest step.
func PreviousSpeed(speed float64) float64 {
	i := nearestStep(speed)
	if i > 0 {
		i--
	}
	return SpeedSteps[i]
}

// FormatSpeed renders a rate compactly, e.g. "1x" or "1.25x".
func FormatSpeed(speed float64) string {
	if speed == math.Trunc(speed) {
		return fmt.Sprintf("%.0fx", speed)
	}
	return strconv.FormatFloat(speed, 'f', -1, 64) + "x"
}
