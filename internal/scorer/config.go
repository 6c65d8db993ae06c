// Package scorer computes a lead's digital-presence opportunity score.
package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/config"
)

// DefaultConfig returns a config.ScoringConfig with the standard point
// table. The maximum attainable sum exceeds 100, so scores are capped.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		// Website presence.
		NoWebsitePoints:   25,
		SocialOnlyPoints:  20,
		SiteBuilderPoints: 15,

		// Contact data.
		PhonePoints: 10,
		EmailPoints: 15,

		// Reputation.
		LowRatingPoints:     10,
		FewReviewsPoints:    10,
		LowRatingThreshold:  4.0,
		FewReviewsThreshold: 10,

		// Niche.
		PriorityNichePoints: 10,

		SiteBuilderMarkers: []string{"wix", "wordpress"},
		PriorityNiches:     []string{"dentista", "clínica estética", "clinica estetica"},
	}
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	points := map[string]int{
		"no_website_points":     c.NoWebsitePoints,
		"social_only_points":    c.SocialOnlyPoints,
		"site_builder_points":   c.SiteBuilderPoints,
		"phone_points":          c.PhonePoints,
		"email_points":          c.EmailPoints,
		"low_rating_points":     c.LowRatingPoints,
		"few_reviews_points":    c.FewReviewsPoints,
		"priority_niche_points": c.PriorityNichePoints,
	}
	for name, p := range points {
		if p < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.LowRatingThreshold < 0 || c.LowRatingThreshold > 5 {
		errs = append(errs, "low_rating_threshold must be between 0 and 5")
	}
	if c.FewReviewsThreshold < 0 {
		errs = append(errs, "few_reviews_threshold must be >= 0")
	}

	if len(errs) > 0 {
		// Map iteration order is random.
		sort.Strings(errs)
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
