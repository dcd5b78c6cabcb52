package domain

import "time"

// ChargeAction is the actuator command a tick decided on, before the
// suppressed-state gate is applied.
type ChargeAction int

const (
	ChargeActionNone ChargeAction = iota
	ChargeActionEnable
	ChargeActionDisable
)

type LimiterTickResult struct {
	Action        ChargeAction
	CutoffPending bool
	NextTick      time.Duration
}
