package model

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Credentials are the account username and password. The password is never
// rendered by String or by zap.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

func (c Credentials) String() string {
	return c.Username + ":********"
}

func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("username", c.Username)
	enc.AddBool("password_set", c.Password != "")
	return nil
}

// Session is an authenticated context. A Session value is always fully populated;
// the absence of a session is a nil *Session.
type Session struct {
	UserID      string
	BaseURL     string
	AccessToken string
	CreatedAt   time.Time
}
