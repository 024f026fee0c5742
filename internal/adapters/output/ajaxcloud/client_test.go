package ajaxcloud

import (
	"ajax-cloud-bridge/internal/domain/model"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_HeadersAndPath(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/devices", r.URL.Path)
		w.Write([]byte(`{"devices":[{"id":"1","type":"hub","mode":"armed_away","online":true}]}`))
	})

	c := NewClient(srv.URL+"/", "secret")
	snap, err := c.GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, "1", snap.Devices[0].ID)
	assert.Equal(t, model.DeviceTypeHub, snap.Devices[0].Type)
	assert.Equal(t, "armed_away", *snap.Devices[0].Mode)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestClient_GetDevicesMissingKey(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	snap, err := NewClient(srv.URL, "t").GetDevices(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Devices)
	assert.Empty(t, snap.Devices)
}

func TestClient_GetDevicesToleratesOddFields(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"devices":[
			{"id":"1","type":"hub","mode":"armed_away","online":true},
			{"id":"2","type":"motion_detector","state":true,"battery":87.5,"online":true},
			{"id":"3","type":"door_sensor","tamper":"no","online":true},
			"garbage"
		]}`))
	})

	snap, err := NewClient(srv.URL, "t").GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Devices, 3)
	assert.Equal(t, 88, *snap.Find("2").Battery)
	assert.Nil(t, snap.Find("3").Tamper)
	assert.Equal(t, []string{"tamper"}, snap.Find("3").InvalidFields())
}

func TestClient_Authenticate(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "Bearer ", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])

		w.Write([]byte(`{"status":"pending","token":"T"}`))
	})

	res, err := NewClient(srv.URL, "").Authenticate(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, model.AuthStatusPending, res.Status)
	assert.Equal(t, "T", res.Token)
}

func TestClient_CheckStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/status", r.URL.Path)
		assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":"approved"}`))
	})

	res, err := NewClient(srv.URL, "T").CheckStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.AuthStatusApproved, res.Status)
}

func TestClient_ArmAndDisarm(t *testing.T) {
	var calls []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/v1/hubs/h1/arm" {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "armed_night", body["mode"])
			w.Write([]byte(`{"ok":true}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	c := NewClient(srv.URL, "t")
	ack, err := c.ArmAlarm(context.Background(), "h1", model.AlarmModeArmedNight)
	require.NoError(t, err)
	assert.Equal(t, true, ack["ok"])

	ack, err = c.DisarmAlarm(context.Background(), "h1")
	require.NoError(t, err)
	assert.Empty(t, ack)

	assert.Equal(t, []string{"POST /api/v1/hubs/h1/arm", "POST /api/v1/hubs/h1/disarm"}, calls)
}

func TestClient_GetDeviceStateEscapesID(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/devices/a%2Fb", r.URL.EscapedPath())
		w.Write([]byte(`{"id":"a/b","type":"door_sensor","state":true}`))
	})

	dev, err := NewClient(srv.URL, "t").GetDeviceState(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", dev.ID)
	assert.True(t, *dev.State)
}

func TestClient_RequestFailed(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := NewClient(srv.URL, "t").GetDevices(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestFailed))

	var rf *model.RequestFailedError
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, http.StatusInternalServerError, rf.StatusCode)
	assert.Equal(t, "/api/v1/devices", rf.Path)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewClient(srv.URL, "t", WithTimeout(50*time.Millisecond))
	_, err := c.GetDevices(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTimeout))
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, "t").CheckStatus(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConnection))
	assert.False(t, errors.Is(err, model.ErrTimeout))
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := NewClient(srv.URL, "t").GetDevices(context.Background())
	assert.True(t, errors.Is(err, model.ErrInvalidResponse))
}

func TestClient_Request(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/custom", r.URL.Path)
		w.Write([]byte(`{"value":1}`))
	})

	out, err := NewClient(srv.URL, "t").Request(context.Background(), http.MethodPut, "/custom", map[string]interface{}{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out["value"])
}

func TestFactory(t *testing.T) {
	f := Factory(WithTimeout(time.Second))
	c, ok := f("http://example.com/", "tok").(*Client)
	require.True(t, ok)
	assert.Equal(t, "http://example.com", c.url)
	assert.Equal(t, "tok", c.token)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}
