package scorer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Scorer rates how much a lead would benefit from digital-presence
// services. Higher is a better opportunity.
type Scorer struct {
	cfg      config.ScoringConfig
	markers  []string
	priority map[string]struct{}
}

// New creates a Scorer from a point table. Use DefaultConfig for the
// standard one.
func New(cfg config.ScoringConfig) *Scorer {
	s := &Scorer{
		cfg:      cfg,
		priority: make(map[string]struct{}, len(cfg.PriorityNiches)),
	}
	for _, m := range cfg.SiteBuilderMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			s.markers = append(s.markers, m)
		}
	}
	for _, n := range cfg.PriorityNiches {
		s.priority[foldNiche(n)] = struct{}{}
	}
	return s
}

// Score returns the lead's score in [0, model.MaxScore]. It reads only the
// lead's fields.
func (s *Scorer) Score(lead model.Lead) int {
	score := 0

	website := deref(lead.Website)
	if website == "" {
		score += s.cfg.NoWebsitePoints
		if lead.HasSocial() {
			score += s.cfg.SocialOnlyPoints
		}
	} else if s.usesSiteBuilder(website) {
		score += s.cfg.SiteBuilderPoints
	}

	if deref(lead.Phone) != "" {
		score += s.cfg.PhonePoints
	}
	if deref(lead.Email) != "" {
		score += s.cfg.EmailPoints
	}

	if lead.Rating != nil && *lead.Rating < s.cfg.LowRatingThreshold {
		score += s.cfg.LowRatingPoints
	}
	if lead.TotalReviews != nil && *lead.TotalReviews < s.cfg.FewReviewsThreshold {
		score += s.cfg.FewReviewsPoints
	}

	if _, ok := s.priority[foldNiche(lead.Niche)]; ok {
		score += s.cfg.PriorityNichePoints
	}

	return min(score, model.MaxScore)
}

// Apply scores every lead in place.
func (s *Scorer) Apply(leads []model.Lead) {
	for i := range leads {
		leads[i].Score = s.Score(leads[i])
	}
}

func (s *Scorer) usesSiteBuilder(website string) bool {
	lower := strings.ToLower(website)
	for _, m := range s.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// foldNiche lower-cases a niche and strips combining accents, so that
// "Clínica Estética" and "clinica estetica" compare equal.
func foldNiche(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
