package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docmanager/internal/extractor"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, path, filename string) (*extractor.Result, error) {
	args := m.Called(ctx, path, filename)
	if f, ok := args.Get(0).(func(context.Context, string, string) *extractor.Result); ok {
		return f(ctx, path, filename), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extractor.Result), args.Error(1)
}
