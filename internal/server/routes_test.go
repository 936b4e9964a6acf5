package server

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/util"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMaster answers like the master actor does for the routes under test.
func fakeMaster(healthy bool, statusErr error) actor.ReceiveFunc {
	return func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.GetStatusRequest:
			resp := domain.GetStatusResponse{Status: domain.ControllerStatus{State: "idle", AuthorizeWrite: true, ForecastRecords: 48}}
			resp.ResponseError = statusErr
			ctx.Respond(resp)
		case domain.GetConsumptionRequest:
			// large enough to be compressed
			table := map[string]float64{}
			for i := 0; i < 200; i++ {
				table[fmt.Sprintf("slot_%03d", i)] = 0.25
			}
			ctx.Respond(domain.GetConsumptionResponse{Table: table, Total: 50})
		case domain.RefreshForecastRequest:
			ctx.Respond(domain.RefreshForecastResponse{Queued: true})
		}
	}
}

func newTestServer(t *testing.T, healthy bool, statusErr error) (*httptest.Server, *actor.ActorSystem) {
	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromFunc(fakeMaster(healthy, statusErr)))
	srv := NewServer(util.LoadTestConfig(), as.Root, pid)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		as.Shutdown()
	})
	return ts, as
}

func TestHealthCheckHandler(t *testing.T) {

	ts, _ := newTestServer(t, true, nil)
	res, err := http.Get(ts.URL + "/healthcheck")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	ts, _ = newTestServer(t, false, nil)
	res, err = http.Get(ts.URL + "/healthcheck")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestStatusHandler(t *testing.T) {

	ts, _ := newTestServer(t, true, nil)
	res, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var st domain.ControllerStatus
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	assert.Equal(t, "idle", st.State)
	assert.True(t, st.AuthorizeWrite)
	assert.Equal(t, 48, st.ForecastRecords)
	assert.Nil(t, st.Optimizer)
}

func TestStatusHandlerControllerError(t *testing.T) {

	ts, _ := newTestServer(t, true, errors.New("controller stopped"))
	res, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestConsumptionHandlerGzip(t *testing.T) {

	ts, _ := newTestServer(t, true, nil)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/consumption", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	// a transport that leaves the body compressed
	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "gzip", res.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(res.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	var cons consumptionBody
	require.NoError(t, json.Unmarshal(body, &cons))
	assert.Len(t, cons.Table, 200)
	assert.InDelta(t, 50.0, cons.Total, 1e-9)
}

func TestRefreshForecastHandler(t *testing.T) {

	ts, _ := newTestServer(t, true, nil)
	res, err := http.Post(ts.URL+"/api/forecast/refresh", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body["queued"])

	res, err = http.Get(ts.URL + "/api/forecast/refresh")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}
