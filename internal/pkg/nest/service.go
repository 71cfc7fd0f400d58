package nest

import (
	"context"
	"errors"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// Service combines the API client with a session manager. A call rejected for
// authentication triggers one fresh login and a single retry.
type Service struct {
	client   *Client
	sessions *SessionManager
}

func NewService(client *Client, creds model.Credentials) *Service {
	return &Service{
		client:   client,
		sessions: NewSessionManager(client, creds),
	}
}

func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

func (s *Service) Login(ctx context.Context) (*model.Session, error) {
	return s.sessions.Login(ctx)
}

func (s *Service) Status(ctx context.Context) (*model.StatusSnapshot, error) {
	return withSession(ctx, s.sessions, func(sess *model.Session) (*model.StatusSnapshot, error) {
		return s.client.FetchStatus(ctx, sess)
	})
}

func (s *Service) SetTargetTemperature(ctx context.Context, deviceID string, temperatureC float64) error {
	_, err := withSession(ctx, s.sessions, func(sess *model.Session) (struct{}, error) {
		return struct{}{}, s.client.SetTargetTemperature(ctx, sess, deviceID, temperatureC)
	})
	return err
}

func withSession[T any](ctx context.Context, m *SessionManager, call func(*model.Session) (T, error)) (T, error) {
	var zero T
	sess, err := m.Session(ctx)
	if err != nil {
		return zero, err
	}
	res, err := call(sess)
	if !errors.Is(err, ErrAuth) {
		return res, err
	}

	m.logger.Info("nest session rejected, logging in again")
	m.Invalidate(sess)
	if sess, err = m.Session(ctx); err != nil {
		return zero, err
	}
	return call(sess)
}
