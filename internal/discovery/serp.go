package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/phone"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

const (
	// DefaultSerpWorkers bounds concurrent SerpAPI calls.
	DefaultSerpWorkers = 5
	// DefaultSerpLanguage is the hl parameter sent to SerpAPI.
	DefaultSerpLanguage = "pt"
)

// SerpSource is a best-effort secondary source backed by SerpAPI's Google
// Maps engine. Its failures are logged and never reported to the caller.
type SerpSource struct {
	client   serpapi.Client
	pool     *semaphore.Weighted
	language string
	now      func() time.Time

	calls atomic.Int64
}

// SerpOption configures a SerpSource.
type SerpOption func(*SerpSource)

// WithSerpWorkers sets the worker pool size.
func WithSerpWorkers(n int) SerpOption {
	return func(s *SerpSource) {
		if n > 0 {
			s.pool = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithSerpLanguage sets the hl parameter.
func WithSerpLanguage(lang string) SerpOption {
	return func(s *SerpSource) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithSerpClock sets the time source used to stamp leads.
func WithSerpClock(now func() time.Time) SerpOption {
	return func(s *SerpSource) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSerpSource creates a SerpSource.
func NewSerpSource(client serpapi.Client, opts ...SerpOption) *SerpSource {
	s := &SerpSource{
		client:   client,
		pool:     semaphore.NewWeighted(DefaultSerpWorkers),
		language: DefaultSerpLanguage,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements Source.
func (s *SerpSource) Name() string {
	return model.SourceSerpAPI
}

// Calls returns the number of searches sent.
func (s *SerpSource) Calls() int64 {
	return s.calls.Load()
}

// Usage implements UsageReporter.
func (s *SerpSource) Usage() cost.Usage {
	return cost.Usage{SerpAPISearch: s.Calls()}
}

// Search implements Source. It always returns a nil error; failures yield an
// empty result.
func (s *SerpSource) Search(ctx context.Context, niche, city string) ([]model.Lead, error) {
	log := zap.L().With(
		zap.String("source", s.Name()),
		zap.String("niche", niche),
		zap.String("city", city),
	)

	if err := s.pool.Acquire(ctx, 1); err != nil {
		log.Warn("serpapi worker unavailable", zap.Error(err))
		return nil, nil
	}
	defer s.pool.Release(1)

	collectedAt := s.now()
	s.calls.Add(1)
	resp, err := s.client.MapsSearch(ctx, serpapi.MapsSearchRequest{
		Query:    Query(niche, city),
		Language: s.language,
	})
	if err != nil {
		log.Warn("serpapi search failed", zap.Error(err))
		return nil, nil
	}

	leads := make([]model.Lead, 0, len(resp.LocalResults))
	for _, r := range resp.LocalResults {
		lead := model.NewLead(r.Title, niche, city, model.SourceSerpAPI, collectedAt)
		lead.Address = model.String(r.Address)
		lead.Phone = model.String(phone.FormatE164(r.Phone))
		lead.Website = model.String(r.Website)
		lead.Rating = r.Rating
		lead.TotalReviews = r.Reviews
		lead.PlaceID = model.String(r.PlaceID)
		if r.GPSCoordinates != nil {
			lead.Latitude = model.Float(r.GPSCoordinates.Latitude)
			lead.Longitude = model.Float(r.GPSCoordinates.Longitude)
		}
		leads = append(leads, lead)
	}

	log.Info("serpapi search complete", zap.Int("results", len(leads)))
	return leads, nil
}
