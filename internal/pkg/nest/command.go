package nest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type setTargetRequest struct {
	TargetChangePending bool    `json:"target_change_pending"`
	TargetTemperature   float64 `json:"target_temperature"`
}

// SetTargetTemperature asks the service to change a thermostat's target
// temperature. temperatureC is in degrees Celsius.
func (c *Client) SetTargetTemperature(ctx context.Context, s *model.Session, deviceID string, temperatureC float64) error {
	body, err := json.Marshal(setTargetRequest{
		TargetChangePending: true,
		TargetTemperature:   temperatureC,
	})
	if err != nil {
		return err
	}

	u := s.BaseURL + "/v2/put/shared." + deviceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	setSessionHeaders(req, s.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("setting target temperature", zap.String("url", u), zap.Float64("target_temperature_c", temperatureC))
	resp, err := c.do(req, "set_target_temperature")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
		return nil
	case isAuthFailure(resp.StatusCode):
		return &AuthError{StatusCode: resp.StatusCode}
	default:
		c.logger.Error("received unexpected set temperature response", zap.Int("status_code", resp.StatusCode))
		return &TransportError{StatusCode: resp.StatusCode, Body: readErrorBody(resp)}
	}
}
