package port

import (
	"time"

	"github.com/mcastell/chargecap/internal/core/domain"
)

type LimiterLogic interface {
	// Tick decides the charge action for one sample. cutoffPending carries the
	// debounce flag from the previous tick.
	Tick(state domain.ChargeState, lowerThreshold, upperThreshold int, cutoffPending bool) domain.LimiterTickResult
	// Clamp* repair a threshold write against the other threshold's current
	// value so the band can never invert.
	ClampLowerThreshold(value, upperThreshold int) int
	ClampUpperThreshold(value, lowerThreshold int) int
	FaultBackoff() time.Duration
	TickInterval() time.Duration
}
