package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docmanager/internal/domain"
	"docmanager/internal/logger"
	"docmanager/internal/model"
	"docmanager/internal/repository"
)

// RetrievalPolicy tunes snippet size and page bounds for read queries.
type RetrievalPolicy struct {
	SnippetWindow   int
	DefaultPageSize int
	MaxPageSize     int
}

// FilterQuery holds raw filter inputs as received from the client. Blank
// fields are unconstrained.
type FilterQuery struct {
	Author      string
	ContentType string
	FromDate    string
	ToDate      string
}

// SearchResultList is a page of keyword matches.
type SearchResultList struct {
	Items []model.SearchResult `json:"data"`
	Total int                  `json:"total"`
}

// DocumentListResult is a page of full documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// SearchService defines the read-side use cases.
type SearchService interface {
	// Search returns documents whose title or content contains query.
	Search(ctx context.Context, query string, limit, offset int) (*SearchResultList, error)

	// Filter returns documents matching every supplied criterion.
	Filter(ctx context.Context, q FilterQuery, limit, offset int) (*DocumentListResult, error)
}

type searchService struct {
	repo   repository.DocumentRepository
	policy RetrievalPolicy
	loc    *time.Location
	logger *zap.Logger
}

// NewSearchService constructs a new SearchService. Filter dates without a
// zone are interpreted in loc.
func NewSearchService(repo repository.DocumentRepository, policy RetrievalPolicy, loc *time.Location, logger *zap.Logger) SearchService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &searchService{repo: repo, policy: policy, loc: loc, logger: logger}
}

func (s *searchService) Search(ctx context.Context, query string, limit, offset int) (*SearchResultList, error) {
	ctx, span := tracer.Start(ctx, "SearchService.Search")
	defer span.End()

	// The query is a literal substring: surrounding spaces are significant and
	// an empty query matches every document.
	pq := s.page(limit, offset)
	span.SetAttributes(
		attribute.Int("page.limit", pq.Limit),
		attribute.Int("page.offset", pq.Offset),
	)

	res, err := s.repo.Search(ctx, query, pq)
	if err != nil {
		return nil, recordErr(span, domain.NewInfrastructureError("failed to search documents", err))
	}

	items := make([]model.SearchResult, 0, len(res.Items))
	for _, d := range res.Items {
		items = append(items, model.SearchResult{
			ID:         d.ID,
			Title:      d.Title,
			Snippet:    GenerateSnippet(d.Content, query, s.policy.SnippetWindow),
			UploadedAt: d.UploadedAt,
			Author:     d.Author,
		})
	}

	logger.FromContext(ctx, s.logger).Debug("search completed",
		zap.Int("results", len(items)),
		zap.Int("total", res.Total),
	)
	return &SearchResultList{Items: items, Total: res.Total}, nil
}

func (s *searchService) Filter(ctx context.Context, q FilterQuery, limit, offset int) (*DocumentListResult, error) {
	ctx, span := tracer.Start(ctx, "SearchService.Filter")
	defer span.End()

	f, err := s.buildFilter(q)
	if err != nil {
		return nil, recordErr(span, err)
	}

	pq := s.page(limit, offset)
	span.SetAttributes(
		attribute.Int("page.limit", pq.Limit),
		attribute.Int("page.offset", pq.Offset),
	)

	res, err := s.repo.Filter(ctx, f, pq)
	if err != nil {
		return nil, recordErr(span, domain.NewInfrastructureError("failed to filter documents", err))
	}

	items := res.Items
	if items == nil {
		items = []model.Document{}
	}
	span.SetAttributes(attribute.Int("results", len(items)))
	return &DocumentListResult{Items: items, Total: res.Total}, nil
}

func (s *searchService) buildFilter(q FilterQuery) (repository.DocumentFilter, error) {
	var f repository.DocumentFilter

	from, err := ParseDateTime(q.FromDate, "fromDate", s.loc)
	if err != nil {
		return f, err
	}
	to, err := ParseDateTime(q.ToDate, "toDate", s.loc)
	if err != nil {
		return f, err
	}
	if from != nil && to != nil && from.After(*to) {
		return f, domain.NewValidationError("fromDate must be before or equal to toDate")
	}

	f.From, f.To = from, to
	if a := strings.TrimSpace(q.Author); a != "" {
		f.Author = &a
	}
	if ct := normalizeMediaType(q.ContentType); ct != "" {
		f.ContentType = &ct
	}
	return f, nil
}

func (s *searchService) page(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = s.policy.DefaultPageSize
	}
	if s.policy.MaxPageSize > 0 && limit > s.policy.MaxPageSize {
		limit = s.policy.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}
