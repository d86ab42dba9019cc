package domain

import "time"

// Time is a 64-bit fixed-point duration in seconds: the upper 32 bits hold
// whole seconds and the lower 32 bits the fraction. Clock time and sample time
// share this representation.
type Time uint64

const fracOne = 1 << 32

// Seconds converts t to floating-point seconds.
func (t Time) Seconds() float64 {
	return float64(t>>32) + float64(t&0xFFFFFFFF)/fracOne
}

// Duration converts t to a time.Duration, truncating below one nanosecond.
func (t Time) Duration() time.Duration {
	whole := time.Duration(t>>32) * time.Second
	frac := time.Duration((uint64(t&0xFFFFFFFF) * uint64(time.Second)) >> 32)
	return whole + frac
}

// SecondsToTime converts floating-point seconds to fixed point. Negative values
// map to zero.
func SecondsToTime(s float64) Time {
	if s <= 0 {
		return 0
	}
	return Time(s * fracOne)
}

// DurationToTime converts d to fixed point without going through floats.
func DurationToTime(d time.Duration) Time {
	if d <= 0 {
		return 0
	}
	sec := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return Time(sec<<32 | (rem<<32)/uint64(time.Second))
}

// SamplesToTime returns the fixed-point time spanned by count samples at the
// given sampling rate.
func SamplesToTime(count uint64, rate uint32) Time {
	if rate == 0 {
		return 0
	}
	r := uint64(rate)
	sec := count / r
	rem := count % r
	return Time(sec<<32 + (rem<<32)/r)
}
