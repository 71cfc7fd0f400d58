package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/contxt"
	"github.com/anicoll/nest-integration/internal/pkg/model"
	"github.com/anicoll/nest-integration/internal/pkg/nest"
	"github.com/anicoll/nest-integration/internal/pkg/plugin"
	"github.com/anicoll/nest-integration/internal/pkg/thermostat"
)

const writeTimeout = 30 * time.Second

type pluginService interface {
	Status() model.PluginStatus
	Devices() []model.ThermostatState
	SetVariable(ctx context.Context, deviceID, name string, value any) error
}

type historyStore interface {
	GetHistory(ctx context.Context, deviceID, name string, from, to *time.Time) (model.Properties, error)
}

type server struct {
	plugin  pluginService
	history historyStore
	hub     *Hub
	logger  *zap.Logger
}

type setVariablePayload struct {
	Value any `json:"value"`
}

// New returns the local HTTP API. history and metrics may be nil, in which
// case their routes are not served.
func New(p pluginService, history historyStore, hub *Hub, metrics http.Handler) http.Handler {
	s := &server{plugin: p, history: history, hub: hub, logger: zap.L()}

	router := httprouter.New()
	router.GET("/status", s.getStatus)
	router.GET("/devices", s.getDevices)
	router.GET("/devices/:id", s.getDevice)
	router.PUT("/devices/:id/variables/:name", s.putVariable)
	if history != nil {
		router.GET("/devices/:id/variables/:name/history", s.getHistory)
	}
	if hub != nil {
		router.GET("/ws", s.serveWS)
	}
	if metrics != nil {
		router.Handler(http.MethodGet, "/metrics", metrics)
	}
	return LoggingMiddleware(router)
}

func (s *server) getStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.plugin.Status())
}

func (s *server) getDevices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.plugin.Devices())
}

func (s *server) getDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	device, ok := lo.Find(s.plugin.Devices(), func(d model.ThermostatState) bool {
		return d.ID == id
	})
	if !ok {
		handleError(w, thermostat.ErrDeviceNotFound)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (s *server) putVariable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := unmarshalPayload[setVariablePayload](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := contxt.NewContext(r.Context(), writeTimeout)
	defer cancel()
	deviceID, name := ps.ByName("id"), ps.ByName("name")
	if err := s.plugin.SetVariable(ctx, deviceID, name, req.Value); err != nil {
		s.logger.Error("failed to set variable", zap.String("device", deviceID), zap.String("variable", name), zap.Error(err))
		handleError(w, err)
		return
	}
	s.logger.Info("variable set", zap.String("device", deviceID), zap.String("variable", name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	props, err := s.history.GetHistory(r.Context(), ps.ByName("id"), ps.ByName("name"), from, to)
	if err != nil {
		handleError(w, err)
		return
	}
	if props == nil {
		props = model.Properties{}
	}
	writeJSON(w, http.StatusOK, props)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func handleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, thermostat.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, thermostat.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, plugin.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, nest.ErrTransport), errors.Is(err, nest.ErrAuth):
		status = http.StatusBadGateway
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unmarshalPayload[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.UseNumber()
	var out T
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
