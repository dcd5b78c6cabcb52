package domain

import "fmt"

// LimiterRequest

type LimiterRequest interface {
	ActorRequest
	LimiterCommand() string
}

type LimiterRequestMixIn struct {
	ActorRequestMixIn
}

func (r LimiterRequestMixIn) LimiterCommand() string {
	return fmt.Sprintf("%T", r)
}

// LimiterResponse

type LimiterResponse interface {
	ActorResponse
	LimiterResponse() string
}

type LimiterResponseMixIn struct {
	ActorResponse
}

func (r LimiterResponseMixIn) LimiterResponse() string {
	return fmt.Sprintf("%T", r)
}

// Limiter commands. Writes answer with the value actually stored, after
// clamping, so callers can surface the effective setting.

type LimiterEnableRequest struct {
	LimiterRequestMixIn
	Enable bool
}

type LimiterEnableResponse struct {
	LimiterResponseMixIn
	Enabled bool
	Changed bool
}

type LimiterSetLowerThresholdRequest struct {
	LimiterRequestMixIn
	Value int
}

type LimiterSetLowerThresholdResponse struct {
	LimiterResponseMixIn
	Value int
}

type LimiterSetUpperThresholdRequest struct {
	LimiterRequestMixIn
	Value int
}

type LimiterSetUpperThresholdResponse struct {
	LimiterResponseMixIn
	Value int
}

type LimiterGetParamsRequest struct {
	LimiterRequestMixIn
}

type LimiterGetParamsResponse struct {
	LimiterResponseMixIn
	Enabled        bool
	LowerThreshold int
	UpperThreshold int
	CutoffPending  bool
}

// ensure interface compliance
var _ LimiterRequest = (*LimiterEnableRequest)(nil)
