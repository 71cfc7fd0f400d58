package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/nest-integration/internal/pkg/model"
	"github.com/anicoll/nest-integration/internal/pkg/nest"
	"github.com/anicoll/nest-integration/internal/pkg/plugin"
	"github.com/anicoll/nest-integration/internal/pkg/thermostat"
)

type MockPlugin struct {
	StatusFunc      func() model.PluginStatus
	DevicesFunc     func() []model.ThermostatState
	SetVariableFunc func(ctx context.Context, deviceID, name string, value any) error
}

func (m *MockPlugin) Status() model.PluginStatus {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return model.Running()
}

func (m *MockPlugin) Devices() []model.ThermostatState {
	if m.DevicesFunc != nil {
		return m.DevicesFunc()
	}
	return []model.ThermostatState{{ID: "A", Name: "Hallway", Manufacturer: "Nest", Available: true}}
}

func (m *MockPlugin) SetVariable(ctx context.Context, deviceID, name string, value any) error {
	if m.SetVariableFunc != nil {
		return m.SetVariableFunc(ctx, deviceID, name, value)
	}
	return nil
}

type MockHistory struct {
	GetHistoryFunc func(ctx context.Context, deviceID, name string, from, to *time.Time) (model.Properties, error)
}

func (m *MockHistory) GetHistory(ctx context.Context, deviceID, name string, from, to *time.Time) (model.Properties, error) {
	return m.GetHistoryFunc(ctx, deviceID, name, from, to)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetStatusAndDevices(t *testing.T) {
	h := New(&MockPlugin{StatusFunc: func() model.PluginStatus { return model.Failed("Error logging into Nest") }}, nil, nil, nil)

	rec := do(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"failed","message":"Error logging into Nest"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/devices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var devices []model.ThermostatState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "Hallway", devices[0].Name)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/devices/A", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/devices/Z", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
}

func TestPutVariable(t *testing.T) {
	tests := map[string]struct {
		body       string
		err        error
		wantStatus int
		wantValue  any
	}{
		"number": {
			body:       `{"value": 21.5}`,
			wantStatus: http.StatusNoContent,
			wantValue:  json.Number("21.5"),
		},
		"string": {
			body:       `{"value": "72"}`,
			wantStatus: http.StatusNoContent,
			wantValue:  "72",
		},
		"malformed body": {
			body:       `{"value":`,
			wantStatus: http.StatusBadRequest,
		},
		"validation error": {
			body:       `{"value": "abc"}`,
			err:        &thermostat.ValidationError{Variable: "targetTempF", Value: "abc"},
			wantStatus: http.StatusBadRequest,
			wantValue:  "abc",
		},
		"unknown device": {
			body:       `{"value": 20}`,
			err:        fmt.Errorf("%w: Z", thermostat.ErrDeviceNotFound),
			wantStatus: http.StatusNotFound,
			wantValue:  json.Number("20"),
		},
		"upstream failure": {
			body:       `{"value": 20}`,
			err:        &nest.TransportError{StatusCode: http.StatusServiceUnavailable},
			wantStatus: http.StatusBadGateway,
			wantValue:  json.Number("20"),
		},
		"not configured": {
			body:       `{"value": 20}`,
			err:        plugin.ErrNotConfigured,
			wantStatus: http.StatusServiceUnavailable,
			wantValue:  json.Number("20"),
		},
		"unexpected": {
			body:       `{"value": 20}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantValue:  json.Number("20"),
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got any
			called := false
			p := &MockPlugin{
				SetVariableFunc: func(ctx context.Context, deviceID, name string, value any) error {
					called = true
					assert.Equal(t, "A", deviceID)
					assert.Equal(t, "targetTempF", name)
					_, ok := ctx.Deadline()
					assert.True(t, ok)
					got = value
					return tt.err
				},
			}
			rec := do(t, New(p, nil, nil, nil), http.MethodPut, "/devices/A/variables/targetTempF", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantValue != nil, called)
			if tt.wantValue != nil {
				assert.Equal(t, tt.wantValue, got)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	var gotFrom, gotTo *time.Time
	history := &MockHistory{
		GetHistoryFunc: func(ctx context.Context, deviceID, name string, from, to *time.Time) (model.Properties, error) {
			assert.Equal(t, "A", deviceID)
			assert.Equal(t, "indoorTempC", name)
			gotFrom, gotTo = from, to
			return model.Properties{{DeviceID: "A", Name: "indoorTempC", Value: 20}}, nil
		},
	}
	h := New(&MockPlugin{}, history, nil, nil)

	rec := do(t, h, http.MethodGet, "/devices/A/variables/indoorTempC/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, gotFrom)
	assert.Nil(t, gotTo)

	rec = do(t, h, http.MethodGet, "/devices/A/variables/indoorTempC/history?from=2024-06-01T00:00:00Z&to=2024-06-02T00:00:00Z", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotFrom)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *gotFrom)
	var props model.Properties
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &props))
	assert.Len(t, props, 1)

	rec = do(t, h, http.MethodGet, "/devices/A/variables/indoorTempC/history?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("nest_devices_tracked 2\n"))
	})
	rec := do(t, New(&MockPlugin{}, nil, nil, metrics), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nest_devices_tracked")
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestWebsocket(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(New(&MockPlugin{}, nil, hub, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	env := readEnvelope(t, conn)
	assert.JSONEq(t, `"status"`, string(env["type"]))
	assert.JSONEq(t, `{"state":"running"}`, string(env["data"]))
	env = readEnvelope(t, conn)
	assert.JSONEq(t, `"devices"`, string(env["type"]))

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Write(context.Background(), model.VariableBatch{
		DeviceID:  "A",
		Variables: []model.Variable{{Name: "indoorTempC", Value: 20}},
	}))
	env = readEnvelope(t, conn)
	assert.JSONEq(t, `"variables"`, string(env["type"]))
	var batch model.VariableBatch
	require.NoError(t, json.Unmarshal(env["data"], &batch))
	assert.Equal(t, "A", batch.DeviceID)

	require.NoError(t, hub.ReportStatus(context.Background(), model.Failed("boom")))
	env = readEnvelope(t, conn)
	assert.JSONEq(t, `"status"`, string(env["type"]))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
