package auth

import "time"

// IsWithinThresholdPeriod checks whether t falls inside the window ending
// threshold after it, e.g. a login attempt still inside its cooldown.
func IsWithinThresholdPeriod(t *time.Time, threshold time.Duration) bool {
	if t == nil {
		return false
	}
	return time.Since(*t) < threshold
}

// IsOutsideThresholdPeriod is the complement of IsWithinThresholdPeriod; a
// nil timestamp counts as outside.
func IsOutsideThresholdPeriod(t *time.Time, threshold time.Duration) bool {
	return !IsWithinThresholdPeriod(t, threshold)
}
