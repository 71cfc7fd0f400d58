package cmd

import (
	"context"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// NestPlugin is what run drives: the account configuration and the poll cycle.
type NestPlugin interface {
	Configure(ctx context.Context, creds model.Credentials) error
	Refresh(ctx context.Context) error
}

// Cleaner removes expired history.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}
