// Package cost estimates the API spend of a prospecting run.
package cost

import "github.com/sells-group/prospect-cli/internal/config"

// Usage counts the billable API calls made during a run.
type Usage struct {
	PlacesTextSearch int64
	PlacesDetails    int64
	SerpAPISearch    int64
}

// Total returns the total number of billable calls.
func (u Usage) Total() int64 {
	return u.PlacesTextSearch + u.PlacesDetails + u.SerpAPISearch
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates config.PricingConfig
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates config.PricingConfig) *Calculator {
	return &Calculator{rates: rates}
}

// PlacesTextSearch computes the cost of n text search requests.
func (c *Calculator) PlacesTextSearch(n int64) float64 {
	return float64(n) * c.rates.PlacesTextSearch
}

// PlacesDetails computes the cost of n place details requests.
func (c *Calculator) PlacesDetails(n int64) float64 {
	return float64(n) * c.rates.PlacesDetails
}

// SerpAPISearch computes the cost of n SerpAPI searches.
func (c *Calculator) SerpAPISearch(n int64) float64 {
	return float64(n) * c.rates.SerpAPISearch
}

// Estimate returns the estimated USD spend for u.
func (c *Calculator) Estimate(u Usage) float64 {
	return c.PlacesTextSearch(u.PlacesTextSearch) +
		c.PlacesDetails(u.PlacesDetails) +
		c.SerpAPISearch(u.SerpAPISearch)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() config.PricingConfig {
	return config.PricingConfig{
		PlacesTextSearch: 0.032,
		PlacesDetails:    0.017,
		SerpAPISearch:    0.01,
	}
}
