package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type refresher interface {
	Refresh(ctx context.Context) error
}

// Schedule polls r every interval until ctx is done. A poll still running when
// the next one is due causes that tick to be skipped.
func Schedule(ctx context.Context, r refresher, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	logger := CronLogger(zap.L())
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := r.Refresh(ctx); err != nil {
			zap.L().Debug("scheduled refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

// CronLogger adapts a zap logger to the cron.Logger interface.
func CronLogger(logger *zap.Logger) cron.Logger {
	return &cronLogger{logger: logger.Sugar()}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
