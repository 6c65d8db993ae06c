package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/phone"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/google"
)

const (
	// DefaultMaxLeadsPerQuery caps the leads returned for one (niche, city).
	DefaultMaxLeadsPerQuery = 60
	// DefaultDetailsConcurrency bounds in-flight details lookups per source.
	DefaultDetailsConcurrency = 5
	// DefaultPageTokenDelay is how long a next_page_token needs before the
	// API accepts it.
	DefaultPageTokenDelay = 2 * time.Second
	// DefaultPlacesLanguage is the result language requested from Places.
	DefaultPlacesLanguage = "pt-BR"
)

// PlacesSource searches Google Places text search and enriches each
// operational result with a details lookup.
type PlacesSource struct {
	client  google.Client
	limiter *resilience.Limiter
	details *semaphore.Weighted
	retry   resilience.RetryConfig

	language       string
	maxLeads       int
	pageTokenDelay time.Duration
	now            func() time.Time

	textSearchCalls atomic.Int64
	detailsCalls    atomic.Int64
}

// PlacesOption configures a PlacesSource.
type PlacesOption func(*PlacesSource)

// WithLanguage sets the result language.
func WithLanguage(lang string) PlacesOption {
	return func(s *PlacesSource) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithDetailsConcurrency bounds concurrent details lookups across all
// searches made by this source.
func WithDetailsConcurrency(n int) PlacesOption {
	return func(s *PlacesSource) {
		if n > 0 {
			s.details = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMaxLeadsPerQuery overrides DefaultMaxLeadsPerQuery.
func WithMaxLeadsPerQuery(n int) PlacesOption {
	return func(s *PlacesSource) {
		if n > 0 {
			s.maxLeads = n
		}
	}
}

// WithPageTokenDelay overrides DefaultPageTokenDelay.
func WithPageTokenDelay(d time.Duration) PlacesOption {
	return func(s *PlacesSource) {
		if d >= 0 {
			s.pageTokenDelay = d
		}
	}
}

// WithRetryConfig overrides resilience.DefaultRetryConfig.
func WithRetryConfig(cfg resilience.RetryConfig) PlacesOption {
	return func(s *PlacesSource) {
		s.retry = cfg
	}
}

// WithClock sets the time source used to stamp leads.
func WithClock(now func() time.Time) PlacesOption {
	return func(s *PlacesSource) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPlacesSource creates a PlacesSource. Every request waits on limiter
// first; a nil limiter means no rate limiting.
func NewPlacesSource(client google.Client, limiter *resilience.Limiter, opts ...PlacesOption) *PlacesSource {
	if limiter == nil {
		limiter = resilience.NewLimiter(0)
	}
	s := &PlacesSource{
		client:         client,
		limiter:        limiter,
		details:        semaphore.NewWeighted(DefaultDetailsConcurrency),
		retry:          resilience.DefaultRetryConfig(),
		language:       DefaultPlacesLanguage,
		maxLeads:       DefaultMaxLeadsPerQuery,
		pageTokenDelay: DefaultPageTokenDelay,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements Source.
func (s *PlacesSource) Name() string {
	return model.SourceGooglePlaces
}

// TextSearchCalls returns the number of text search requests sent,
// including retries.
func (s *PlacesSource) TextSearchCalls() int64 {
	return s.textSearchCalls.Load()
}

// DetailsCalls returns the number of details requests sent, including
// retries.
func (s *PlacesSource) DetailsCalls() int64 {
	return s.detailsCalls.Load()
}

// Usage implements UsageReporter.
func (s *PlacesSource) Usage() cost.Usage {
	return cost.Usage{
		PlacesTextSearch: s.TextSearchCalls(),
		PlacesDetails:    s.DetailsCalls(),
	}
}

// Search implements Source. Any failed request, including a single details
// lookup, fails the whole search.
func (s *PlacesSource) Search(ctx context.Context, niche, city string) ([]model.Lead, error) {
	log := zap.L().With(
		zap.String("source", s.Name()),
		zap.String("niche", niche),
		zap.String("city", city),
	)

	query := Query(niche, city)
	collectedAt := s.now()

	var (
		leads     []model.Lead
		pageToken string
	)

	for page := 1; ; page++ {
		if pageToken != "" {
			if err := resilience.Sleep(ctx, s.pageTokenDelay); err != nil {
				return nil, eris.Wrap(err, "places: page token delay")
			}
		}

		resp, err := s.textSearch(ctx, google.TextSearchRequest{
			Query:     query,
			Language:  s.language,
			PageToken: pageToken,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "places: text search %q page %d", query, page)
		}

		log.Info("text search page",
			zap.Int("page", page),
			zap.Int("results", len(resp.Results)),
		)

		found, err := s.detailPage(ctx, niche, city, collectedAt, operational(resp.Results))
		if err != nil {
			return nil, err
		}

		leads = append(leads, found...)
		if len(leads) >= s.maxLeads {
			return leads[:s.maxLeads], nil
		}

		if resp.NextPageToken == "" {
			return leads, nil
		}
		pageToken = resp.NextPageToken
	}
}

// operational keeps summaries that are open and have a place id.
func operational(results []google.Place) []google.Place {
	out := make([]google.Place, 0, len(results))
	for _, p := range results {
		if p.BusinessStatus != google.StatusOperational || p.PlaceID == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// detailPage looks up every candidate of one page concurrently and returns
// the operational ones as leads, in page order.
func (s *PlacesSource) detailPage(ctx context.Context, niche, city string, collectedAt time.Time, candidates []google.Place) ([]model.Lead, error) {
	built := make([]*model.Lead, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	for i, summary := range candidates {
		g.Go(func() error {
			if err := s.details.Acquire(gCtx, 1); err != nil {
				return eris.Wrap(err, "places: acquire details slot")
			}
			defer s.details.Release(1)

			resp, err := s.placeDetails(gCtx, summary.PlaceID)
			if err != nil {
				return eris.Wrapf(err, "places: details %s", summary.PlaceID)
			}
			if resp.Result.BusinessStatus != google.StatusOperational {
				return nil
			}

			lead := buildPlacesLead(niche, city, collectedAt, summary, resp.Result)
			built[i] = &lead
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(built))
	for _, l := range built {
		if l != nil {
			leads = append(leads, *l)
		}
	}
	return leads, nil
}

func buildPlacesLead(niche, city string, collectedAt time.Time, summary google.Place, d google.PlaceDetails) model.Lead {
	name := d.Name
	if name == "" {
		name = summary.Name
	}
	address := d.FormattedAddress
	if address == "" {
		address = summary.FormattedAddress
	}
	tel := phone.FormatE164(d.FormattedPhoneNumber)
	if tel == "" {
		tel = phone.FormatE164(d.InternationalPhoneNumber)
	}

	lead := model.NewLead(name, niche, city, model.SourceGooglePlaces, collectedAt)
	lead.Address = model.String(address)
	lead.Phone = model.String(tel)
	lead.Website = model.String(d.Website)
	lead.Rating = d.Rating
	lead.TotalReviews = d.UserRatingsTotal
	lead.PlaceID = model.String(summary.PlaceID)
	if summary.Geometry != nil {
		lead.Latitude = model.Float(summary.Geometry.Location.Lat)
		lead.Longitude = model.Float(summary.Geometry.Location.Lng)
	}
	return lead
}

func (s *PlacesSource) textSearch(ctx context.Context, req google.TextSearchRequest) (*google.TextSearchResponse, error) {
	cfg := s.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("google_places", "text_search")
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*google.TextSearchResponse, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		s.textSearchCalls.Add(1)
		return s.client.TextSearch(ctx, req)
	})
}

func (s *PlacesSource) placeDetails(ctx context.Context, placeID string) (*google.DetailsResponse, error) {
	cfg := s.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("google_places", "details")
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*google.DetailsResponse, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		s.detailsCalls.Add(1)
		return s.client.PlaceDetails(ctx, placeID)
	})
}
