package actorutil

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/events"
	"github.com/mcastell/chargecap/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

// PipeToSelfWithRecover delivers the future's result to the actor's own
// mailbox, mapping a future error to a message instead of dropping it.
func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps an MQTT switch/number command to the
// matching limiter request. Unknown device ids map to nil.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.DeviceId {
	case events.SWITCH_ID_LIMITER_ENABLED:
		return domain.LimiterEnableRequest{
			Enable: cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil
	case events.INPUT_NUMBER_ID_LOWER_THRESHOLD:
		value, err := strconv.ParseUint(cmd.Payload, 10, 8)
		if err != nil {
			return nil, err
		}
		return domain.LimiterSetLowerThresholdRequest{
			Value: int(value),
		}, nil
	case events.INPUT_NUMBER_ID_UPPER_THRESHOLD:
		value, err := strconv.ParseUint(cmd.Payload, 10, 8)
		if err != nil {
			return nil, err
		}
		return domain.LimiterSetUpperThresholdRequest{
			Value: int(value),
		}, nil
	}
	return nil, nil
}
