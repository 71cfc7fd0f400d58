package nest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type statusResponse struct {
	Structure map[string]structureJSON `json:"structure"`
	Device    map[string]deviceJSON    `json:"device"`
	Shared    map[string]sharedJSON    `json:"shared"`
}

type structureJSON struct {
	Away       bool      `json:"away"`
	Location   string    `json:"location"`
	PostalCode string    `json:"postal_code"`
	User       string    `json:"user"`
	Devices    *[]string `json:"devices"`
	Swarm      []string  `json:"swarm"`
}

type deviceJSON struct {
	CurrentVersion   string `json:"current_version"`
	FanMode          string `json:"fan_mode"`
	HasAirFilter     bool   `json:"has_air_filter"`
	HasDehumidifier  bool   `json:"has_dehumidifier"`
	HasFan           bool   `json:"has_fan"`
	HasHeatPump      bool   `json:"has_heat_pump"`
	HasHumidifier    bool   `json:"has_humidifier"`
	TargetHumidity   int    `json:"target_humidity"`
	Leaf             bool   `json:"leaf"`
	TemperatureScale string `json:"temperature_scale"`
}

type sharedJSON struct {
	CurrentTemperature    *float64 `json:"current_temperature"`
	TargetTemperature     *float64 `json:"target_temperature"`
	TargetTemperatureHigh float64  `json:"target_temperature_high"`
	TargetTemperatureLow  float64  `json:"target_temperature_low"`
	TargetTemperatureType string   `json:"target_temperature_type"`
	TargetChangePending   bool     `json:"target_change_pending"`
	Name                  *string  `json:"name"`
}

// FetchStatus reads the full account status for the session's user.
func (c *Client) FetchStatus(ctx context.Context, s *model.Session) (*model.StatusSnapshot, error) {
	u := s.BaseURL + "/v2/mobile/" + s.UserID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	setSessionHeaders(req, s.AccessToken)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Accept-Language", "en-us")
	req.Header.Set("X-nl-protocol-version", "1")
	req.Header.Set("X-nl-user-id", s.UserID)

	c.logger.Debug("getting status", zap.String("url", u))
	resp, err := c.do(req, "status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
	case isAuthFailure(resp.StatusCode):
		return nil, &AuthError{StatusCode: resp.StatusCode}
	default:
		c.logger.Error("received unexpected status response", zap.Int("status_code", resp.StatusCode))
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: readErrorBody(resp)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	return ParseStatus(data)
}

// ParseStatus decodes an uncompressed status payload.
func ParseStatus(data []byte) (*model.StatusSnapshot, error) {
	var res statusResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &ParseError{Err: err}
	}
	if res.Structure == nil {
		return nil, missingField("structure")
	}
	if res.Device == nil {
		return nil, missingField("device")
	}
	if res.Shared == nil {
		return nil, missingField("shared")
	}

	snapshot := &model.StatusSnapshot{
		Structures: make(map[string]model.Structure, len(res.Structure)),
		Devices:    make(map[string]model.DeviceInfo, len(res.Device)),
		Shared:     make(map[string]model.SharedState, len(res.Shared)),
	}

	for id, st := range res.Structure {
		if st.Devices == nil {
			return nil, missingField("structure." + id + ".devices")
		}
		snapshot.Structures[id] = model.Structure{
			ID:         id,
			Away:       st.Away,
			Location:   st.Location,
			PostalCode: st.PostalCode,
			OwnerUser:  st.User,
			DeviceIDs:  *st.Devices,
			SwarmIDs:   st.Swarm,
		}
	}

	for id, d := range res.Device {
		snapshot.Devices[id] = model.DeviceInfo{
			CurrentVersion:   d.CurrentVersion,
			FanMode:          d.FanMode,
			HasAirFilter:     d.HasAirFilter,
			HasDehumidifier:  d.HasDehumidifier,
			HasFan:           d.HasFan,
			HasHeatPump:      d.HasHeatPump,
			HasHumidifier:    d.HasHumidifier,
			TargetHumidity:   d.TargetHumidity,
			Leaf:             d.Leaf,
			TemperatureScale: d.TemperatureScale,
		}
	}

	for id, sh := range res.Shared {
		if sh.CurrentTemperature == nil {
			return nil, missingField("shared." + id + ".current_temperature")
		}
		if sh.TargetTemperature == nil {
			return nil, missingField("shared." + id + ".target_temperature")
		}
		state := model.SharedState{
			CurrentTemperatureC:    *sh.CurrentTemperature,
			TargetTemperatureC:     *sh.TargetTemperature,
			TargetTemperatureHighC: sh.TargetTemperatureHigh,
			TargetTemperatureLowC:  sh.TargetTemperatureLow,
			TargetTemperatureType:  sh.TargetTemperatureType,
			TargetChangePending:    sh.TargetChangePending,
		}
		if sh.Name != nil && strings.TrimSpace(*sh.Name) != "" {
			state.DisplayName = *sh.Name
		}
		snapshot.Shared[id] = state
	}

	return snapshot, nil
}
