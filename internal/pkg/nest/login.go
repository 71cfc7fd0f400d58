package nest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type loginResponse struct {
	User *string `json:"user"`
	URLs *struct {
		TransportURL *string `json:"transport_url"`
	} `json:"urls"`
	AccessToken *string `json:"access_token"`
}

// Login posts the credentials to the login endpoint and returns a fully
// populated session.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.Session, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("user-agent", UserAgent)

	c.logger.Debug("logging in", zap.String("url", c.loginURL), zap.Object("credentials", creds))
	resp, err := c.do(req, "login")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Error("received unexpected login response", zap.Int("status_code", resp.StatusCode))
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}

	var res loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, &ParseError{Err: err}
	}
	return res.session(time.Now())
}

func (r loginResponse) session(now time.Time) (*model.Session, error) {
	if r.User == nil || *r.User == "" {
		return nil, missingField("user")
	}
	if r.URLs == nil || r.URLs.TransportURL == nil || *r.URLs.TransportURL == "" {
		return nil, missingField("urls.transport_url")
	}
	if r.AccessToken == nil || *r.AccessToken == "" {
		return nil, missingField("access_token")
	}
	return &model.Session{
		UserID:      *r.User,
		BaseURL:     strings.TrimRight(*r.URLs.TransportURL, "/"),
		AccessToken: *r.AccessToken,
		CreatedAt:   now,
	}, nil
}
