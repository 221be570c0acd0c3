package controller

import (
	"errors"
	"fmt"
)

// Thresholds holds the sensor plausibility window and the distance
// conversion constants.
type Thresholds struct {
	// MinMicroVolts and MaxMicroVolts bound the plausible reading window.
	// Readings at or beyond either bound are treated as a sensor failure.
	MinMicroVolts int32
	MaxMicroVolts int32

	// VoltageRange is the span in microvolts that maps onto RangeMeters.
	VoltageRange int32
	RangeMeters  int32

	// Tolerance is the largest allowed disagreement between the two
	// sensors, in 10 cm units. A difference of Tolerance or more is an
	// emergency.
	Tolerance int32
}

// DefaultThresholds returns the calibrated firmware values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinMicroVolts: 500000,
		MaxMicroVolts: 2500000,
		VoltageRange:  2000000,
		RangeMeters:   95,
		Tolerance:     20,
	}
}

// Validate checks that the thresholds describe a usable window.
func (t Thresholds) Validate() error {
	var errs []error
	if t.MinMicroVolts >= t.MaxMicroVolts {
		errs = append(errs, fmt.Errorf("min_microvolts (%d) must be below max_microvolts (%d)", t.MinMicroVolts, t.MaxMicroVolts))
	}
	if t.VoltageRange <= 0 {
		errs = append(errs, fmt.Errorf("voltage_range must be positive, got %d", t.VoltageRange))
	}
	if t.RangeMeters <= 0 {
		errs = append(errs, fmt.Errorf("range_meters must be positive, got %d", t.RangeMeters))
	}
	if t.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %d", t.Tolerance))
	}
	return errors.Join(errs...)
}

// Plausible reports whether uV lies strictly inside the window.
func (t Thresholds) Plausible(uV int32) bool {
	return uV > t.MinMicroVolts && uV < t.MaxMicroVolts
}

// Distance converts a reading to 10 cm units, truncating toward zero.
func (t Thresholds) Distance(uV int32) int32 {
	return int32((int64(uV-t.MinMicroVolts) * int64(t.RangeMeters) * 10) / int64(t.VoltageRange))
}

// Disagree reports whether two distances differ by Tolerance or more.
func (t Thresholds) Disagree(d1, d2 int32) bool {
	diff := d1 - d2
	return diff >= t.Tolerance || diff <= -t.Tolerance
}
