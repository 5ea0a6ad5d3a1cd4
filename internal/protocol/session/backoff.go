package session

import (
	"math/rand"
	"time"
)

// NextBackoffDelay returns the wait before reconnect attempt n (1-based).
// With Jitter the delay is scaled into [0.5, 1.5) of its nominal value.
func NextBackoffDelay(cfg BackoffConfig, n int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	mult := max(cfg.Multiplier, 1.0)
	delay := float64(cfg.InitialDelay)
	for i := 1; i < n; i++ {
		delay *= mult
		if cfg.MaxDelay > 0 && delay >= float64(cfg.MaxDelay) {
			delay = float64(cfg.MaxDelay)
			break
		}
	}
	if cfg.Jitter {
		scale := 1.0
		if rng != nil {
			scale = 0.5 + rng.Float64()
		}
		delay *= scale
	}
	return time.Duration(delay)
}
