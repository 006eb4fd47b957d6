package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// MaxDuration returns the largest value of durations, or 0 when empty.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	highest := durations[0]
	for _, d := range durations[1:] {
		if d > highest {
			highest = d
		}
	}
	return highest
}

// ComputeJitter returns a pseudo-random duration in [0, max).
// A nil rng or a non-positive max yields no jitter.
func ComputeJitter(max time.Duration, rng *rand.Rand) time.Duration {
	if max <= 0 || rng == nil {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes initial * multiplier^(count-1), capped at
// the param's max duration, plus jitter. Counts below 1 are treated as 1.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng *rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	exponent := float64(backoffCount - 1)
	delay := float64(backoffParam.InitialDuration()) * math.Pow(backoffParam.Multiplier(), exponent)
	if maxDelay := float64(backoffParam.MaxDuration()); delay > maxDelay {
		delay = maxDelay
	}

	return time.Duration(delay) + ComputeJitter(jitter, rng)
}
