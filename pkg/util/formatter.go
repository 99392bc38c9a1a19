// Package util holds small output-formatting helpers shared by the CLIs,
// adapted from the teacher's pkg/util/formatter.go (which scaled
// volt/amp/hertz values to SI prefixes for netlist output) to this
// detector's own units: volts, millimeters, and nanoseconds.
package util

import (
	"fmt"
	"math"
)

// FormatValueFactor scales value into the best-fitting SI-prefixed unit,
// same idiom as the teacher's formatter: milli/micro/nano/pico below 1,
// unscaled at or above 1.
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatVoltage formats a bias or weighting-potential value in volts.
func FormatVoltage(volts float64) string {
	return FormatValueFactor(volts, "V")
}

// FormatLength formats a crystal-geometry or drift-position value in mm.
func FormatLength(mm float64) string {
	return FormatValueFactor(mm*1e-3, "m")
}

// FormatTime formats a step or preamp time constant in nanoseconds.
func FormatTime(ns float64) string {
	return FormatValueFactor(ns*1e-9, "s")
}

// FormatFieldStrength formats an electric-field magnitude in V/cm.
func FormatFieldStrength(voltsPerCm float64) string {
	return fmt.Sprintf("%8.3g V/cm", voltsPerCm)
}
