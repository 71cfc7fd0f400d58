package nest

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.Session, error)
}

// SessionManager owns the credentials and the current session of one account.
// Concurrent logins are coalesced into a single request.
type SessionManager struct {
	auth   authenticator
	creds  model.Credentials
	logger *zap.Logger

	mu      sync.RWMutex
	session *model.Session
	group   singleflight.Group
}

func NewSessionManager(auth authenticator, creds model.Credentials) *SessionManager {
	return &SessionManager{
		auth:   auth,
		creds:  creds,
		logger: zap.L(),
	}
}

// CurrentSession returns the current session, or nil when unauthenticated.
func (m *SessionManager) CurrentSession() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Session returns the current session, logging in first when there is none.
func (m *SessionManager) Session(ctx context.Context) (*model.Session, error) {
	if s := m.CurrentSession(); s != nil {
		return s, nil
	}
	return m.Login(ctx)
}

// Login performs a login and replaces the current session. Callers arriving
// while a login is in flight wait for its result. A failed login discards the
// previous session.
func (m *SessionManager) Login(ctx context.Context) (*model.Session, error) {
	ch := m.group.DoChan("login", func() (any, error) {
		// the login is shared; one caller going away must not fail the others.
		s, err := m.auth.Login(context.WithoutCancel(ctx), m.creds)
		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.session = nil
			sessionValid.Set(0)
			loginTotal.WithLabelValues(loginResult(err)).Inc()
			return nil, err
		}
		m.session = s
		sessionValid.Set(1)
		loginTotal.WithLabelValues("success").Inc()
		m.logger.Info("nest login successful", zap.String("user", s.UserID), zap.String("transport_url", s.BaseURL))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Session), nil
	}
}

// Invalidate drops stale if it is still the current session. A session that
// was already replaced by a newer login is left alone.
func (m *SessionManager) Invalidate(stale *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stale != nil && m.session == stale {
		m.session = nil
		sessionValid.Set(0)
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth_error"
	case errors.Is(err, ErrParse):
		return "parse_error"
	default:
		return "transport_error"
	}
}
