package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds the extraction collectors.
type Metrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewMetrics creates the extraction collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "document_extraction_duration_seconds",
				Help:    "Duration of content extraction per upload.",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"content_type"},
		),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_extractions_total",
				Help: "Total number of content extractions by outcome.",
			},
			[]string{"content_type", "outcome"},
		),
	}
	for _, c := range []prometheus.Collector{m.duration, m.total} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrumented wraps an Extractor with metrics and logging.
type Instrumented struct {
	inner   Extractor
	metrics *Metrics
	logger  *zap.Logger
}

// NewInstrumented wraps inner. metrics may be nil to only log.
func NewInstrumented(inner Extractor, metrics *Metrics, logger *zap.Logger) *Instrumented {
	return &Instrumented{inner: inner, metrics: metrics, logger: logger}
}

var _ Extractor = (*Instrumented)(nil)

// Extract delegates to the wrapped extractor and records the outcome.
func (i *Instrumented) Extract(ctx context.Context, path, filename string) (*Result, error) {
	start := time.Now()
	res, err := i.inner.Extract(ctx, path, filename)
	duration := time.Since(start)

	contentType := "unknown"
	if res != nil && res.ContentType != "" {
		contentType = res.ContentType
	}
	outcome := outcomeOf(err)

	if i.metrics != nil {
		i.metrics.total.WithLabelValues(contentType, outcome).Inc()
		if err == nil {
			i.metrics.duration.WithLabelValues(contentType).Observe(duration.Seconds())
		}
	}

	if err != nil {
		i.logger.Warn("content extraction failed",
			zap.String("file_ext", strings.ToLower(filepath.Ext(filename))),
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	i.logger.Debug("content extracted",
		zap.String("content_type", contentType),
		zap.Int("text_bytes", len(res.Text)),
		zap.Bool("has_title", res.Title != ""),
		zap.Duration("duration", duration),
	)
	return res, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrToolUnavailable):
		return "tool_unavailable"
	default:
		return "error"
	}
}
