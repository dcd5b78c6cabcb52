package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adactor "github.com/mcastell/chargecap/internal/adapter/actor"
	coreactor "github.com/mcastell/chargecap/internal/core/actor"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/service"
	"github.com/mcastell/chargecap/internal/util"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnServerFixture(t *testing.T) (*actor.ActorSystem, http.Handler) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	registry := powersupply.CreateTestRegistry()

	logic := &service.DefaultLimiterLogic{
		Logger: logger,
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return coreactor.NewMasterActor(cfg, logic, func() *adactor.PowerSupplyActor {
			return adactor.NewPowerSupplyActor(cfg.PowerSupply, registry, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(1 * time.Second)

	srv := &Server{
		port:        cfg.Port,
		rootContext: context,
		masterActor: pid,
	}

	return as, srv.RegisterRoutes()
}

func doRequest(handler http.Handler, method, path, body string) (int, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestParameterReads(t *testing.T) {

	as, handler := spawnServerFixture(t)
	defer as.Shutdown()

	code, body := doRequest(handler, http.MethodGet, "/parameters/enabled", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0\n", body, "disabled at boot")

	code, body = doRequest(handler, http.MethodGet, "/parameters/lower_threshold", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "95\n", body, "default lower threshold")

	code, body = doRequest(handler, http.MethodGet, "/parameters/upper_threshold", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100\n", body, "default upper threshold")
}

func TestParameterWrites(t *testing.T) {

	as, handler := spawnServerFixture(t)
	defer as.Shutdown()

	// plain write inside the band
	code, body := doRequest(handler, http.MethodPost, "/parameters/lower_threshold", "90")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "90\n", body, "stored value echoed")

	code, body = doRequest(handler, http.MethodGet, "/parameters/lower_threshold", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "90\n", body, "write visible on read")

	// write that would invert the band gets repaired
	code, body = doRequest(handler, http.MethodPost, "/parameters/lower_threshold", "100")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "95\n", body, "lower pushed below upper")

	// trailing newline accepted, like a sysfs store; a write below the lower
	// threshold gets repaired against it
	code, body = doRequest(handler, http.MethodPost, "/parameters/upper_threshold", "90\n")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100\n", body, "upper repaired against lower")
}

func TestParameterWriteInvalid(t *testing.T) {

	as, handler := spawnServerFixture(t)
	defer as.Shutdown()

	code, _ := doRequest(handler, http.MethodPost, "/parameters/lower_threshold", "abc")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(handler, http.MethodPost, "/parameters/enabled", "-1")
	assert.Equal(t, http.StatusBadRequest, code)

	// failed writes have no effect
	code, body := doRequest(handler, http.MethodGet, "/parameters/lower_threshold", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "95\n", body, "value unchanged")
}

func TestEnabledWriteRoundTrip(t *testing.T) {

	as, handler := spawnServerFixture(t)
	defer as.Shutdown()

	code, body := doRequest(handler, http.MethodPost, "/parameters/enabled", "1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1\n", body, "loop started")

	code, body = doRequest(handler, http.MethodGet, "/parameters/enabled", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1\n", body, "running visible on read")

	code, body = doRequest(handler, http.MethodPost, "/parameters/enabled", "0")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0\n", body, "loop stopped synchronously")
}

func TestHealthCheck(t *testing.T) {

	as, handler := spawnServerFixture(t)
	defer as.Shutdown()

	code, body := doRequest(handler, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "health_check: OK", body)
}
