package service

import (
	"time"

	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/port"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"go.uber.org/zap"
)

const (
	DefaultTickIntervalMillis = 1000
	DefaultFaultBackoffMillis = 5000
	DefaultDebounceMillis     = 10000

	// minimum gap kept between the thresholds when a write would invert them
	thresholdGap = 5
)

type DefaultLimiterLogic struct {
	TickIntervalMillis uint32
	FaultBackoffMillis uint32
	DebounceMillis     uint32
	Logger             *zap.Logger
}

// Tick runs the hysteresis/debounce decision for one sample.
//
// Resume: at or below the lower threshold charging is always re-enabled and
// any scheduled cutoff is dropped. Cutoff: only considered while an active
// charging path exists (device charging or USB present); the first sample at
// or above the upper threshold arms a cutoff and stretches the next tick to
// the debounce interval, the second one actually disables charging. A sample
// strictly between the thresholds cancels an armed cutoff instead of leaving
// it latched, so unplugging near the boundary cannot fire a stale cutoff
// later.
func (cfg *DefaultLimiterLogic) Tick(state domain.ChargeState, lowerThreshold, upperThreshold int, cutoffPending bool) domain.LimiterTickResult {

	result := domain.LimiterTickResult{
		Action:        domain.ChargeActionNone,
		CutoffPending: cutoffPending,
		NextTick:      cfg.TickInterval(),
	}

	if state.Percent <= lowerThreshold {
		cfg.Logger.Debug("limiter_logic: resume threshold reached",
			zap.Int("percent", state.Percent), zap.Int("lower_threshold", lowerThreshold))
		result.Action = domain.ChargeActionEnable
		result.CutoffPending = false
		return result
	}

	charging := state.Status == powersupply.StatusCharging || state.USBPresent

	if state.Percent >= upperThreshold && charging {
		if cutoffPending {
			cfg.Logger.Info("limiter_logic: cutoff confirmed, disabling charging",
				zap.Int("percent", state.Percent), zap.Int("upper_threshold", upperThreshold))
			result.Action = domain.ChargeActionDisable
			result.CutoffPending = false
		} else {
			cfg.Logger.Debug("limiter_logic: cutoff armed, debouncing",
				zap.Int("percent", state.Percent), zap.Int("upper_threshold", upperThreshold))
			result.CutoffPending = true
			result.NextTick = cfg.debounceInterval()
		}
		return result
	}

	// strictly inside the band: no command, and an armed cutoff is dropped
	result.CutoffPending = false
	return result
}

func (cfg *DefaultLimiterLogic) ClampLowerThreshold(value, upperThreshold int) int {
	value = clampPercent(value)
	if value >= upperThreshold {
		value = clampPercent(upperThreshold - thresholdGap)
	}
	return value
}

func (cfg *DefaultLimiterLogic) ClampUpperThreshold(value, lowerThreshold int) int {
	value = clampPercent(value)
	if value <= lowerThreshold {
		value = clampPercent(lowerThreshold + thresholdGap)
	}
	return value
}

func (cfg *DefaultLimiterLogic) TickInterval() time.Duration {
	return millisOrDefault(cfg.TickIntervalMillis, DefaultTickIntervalMillis)
}

func (cfg *DefaultLimiterLogic) FaultBackoff() time.Duration {
	return millisOrDefault(cfg.FaultBackoffMillis, DefaultFaultBackoffMillis)
}

func (cfg *DefaultLimiterLogic) debounceInterval() time.Duration {
	return millisOrDefault(cfg.DebounceMillis, DefaultDebounceMillis)
}

func clampPercent(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func millisOrDefault(millis uint32, def uint32) time.Duration {
	if millis == 0 {
		millis = def
	}
	return time.Duration(millis) * time.Millisecond
}

// ensure interface compliance
var _ port.LimiterLogic = (*DefaultLimiterLogic)(nil)
