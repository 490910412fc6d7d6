package alerting

import "time"

// sustainedDutyCycle is the fraction of samples in a window that must
// exceed the threshold before a condition counts as sustained rather
// than a transient spike.
const sustainedDutyCycle = 0.8

// SustainedEventDetector is the statistical debounce for "condition
// held for N minutes at rate R" checks. It is a filter on sample
// counts, not a simple threshold.
type SustainedEventDetector struct{}

// ExpectedSamples returns the sample count required for a condition to
// count as sustained over the window at the given sample rate.
func (SustainedEventDetector) ExpectedSamples(duration time.Duration, rateHz float64) float64 {
	return duration.Minutes() * 60 * rateHz * sustainedDutyCycle
}

// Sustained reports whether the observed count of samples above the
// threshold is strictly greater than the expected duty-cycle count.
// An observed count exactly at the expectation does not trigger.
func (d SustainedEventDetector) Sustained(observed int64, duration time.Duration, rateHz float64) bool {
	return float64(observed) > d.ExpectedSamples(duration, rateHz)
}

// DutyRatio returns the fraction of window samples that exceeded the
// threshold. Sustained(observed, d, r) is equivalent to
// DutyRatio(observed, d, r) > 0.8.
func (SustainedEventDetector) DutyRatio(observed int64, duration time.Duration, rateHz float64) float64 {
	total := duration.Minutes() * 60 * rateHz
	if total <= 0 {
		return 0
	}
	return float64(observed) / total
}
