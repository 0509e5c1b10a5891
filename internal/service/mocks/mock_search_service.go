package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docmanager/internal/service"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, limit, offset int) (*service.SearchResultList, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResultList), args.Error(1)
}

func (m *MockSearchService) Filter(ctx context.Context, q service.FilterQuery, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, q, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}
