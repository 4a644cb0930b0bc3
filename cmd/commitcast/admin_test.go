package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/commitcast/internal/fanout"
	"github.com/Strob0t/commitcast/internal/service"
)

type fixedStatus service.Status

func (f fixedStatus) Status() service.Status { return service.Status(f) }

func TestAdminHealth(t *testing.T) {
	srv := httptest.NewServer(newAdminRouter("commitcast-test", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestAdminStatus(t *testing.T) {
	sources := []statusSource{
		fixedStatus{Stats: fanout.Stats{Name: "objects", SocketPath: "/tmp/o.sock", Connections: 2, Published: 10, Dispatched: 9, QueueDepth: 1}},
		fixedStatus{Stats: fanout.Stats{Name: "transactions", SocketPath: "/tmp/t.sock"}, Absorbed: 3},
	}
	srv := httptest.NewServer(newAdminRouter("commitcast-test", sources))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status   string           `json:"status"`
		Channels []map[string]any `json:"channels"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Channels, 2)

	objects := body.Channels[0]
	assert.Equal(t, "objects", objects["name"])
	assert.Equal(t, "/tmp/o.sock", objects["socket_path"])
	assert.EqualValues(t, 2, objects["connections"])
	assert.EqualValues(t, 10, objects["published"])
	assert.EqualValues(t, 1, objects["queue_depth"])

	assert.EqualValues(t, 3, body.Channels[1]["absorbed"])
}

func TestAdminUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newAdminRouter("commitcast-test", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
