package cmd

import (
	"context"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// MockNestPlugin is a mock implementation of the NestPlugin interface.
type MockNestPlugin struct {
	ConfigureFunc func(ctx context.Context, creds model.Credentials) error
	RefreshFunc   func(ctx context.Context) error
}

func (m *MockNestPlugin) Configure(ctx context.Context, creds model.Credentials) error {
	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(ctx, creds)
	}
	return nil
}

func (m *MockNestPlugin) Refresh(ctx context.Context) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return nil
}

// MockCleaner is a mock implementation of the Cleaner interface.
type MockCleaner struct {
	CleanupFunc func(ctx context.Context) error
}

func (m *MockCleaner) Cleanup(ctx context.Context) error {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx)
	}
	return nil
}
