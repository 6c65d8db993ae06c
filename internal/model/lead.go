// Package model defines the lead record shared by the collection, dedup,
// scoring and persistence stages.
package model

import (
	"strconv"
	"time"
)

// Source identifiers stamped on collected leads.
const (
	SourceGooglePlaces = "google_places"
	SourceSerpAPI      = "serpapi"
)

// MaxScore is the upper bound of Lead.Score.
const MaxScore = 100

// LeadHeader is the header row written to tabular sinks. Column order
// matches Lead.Row.
var LeadHeader = []string{
	"nome",
	"nicho",
	"cidade",
	"endereco",
	"telefone",
	"email",
	"site",
	"instagram",
	"facebook",
	"rating",
	"total_reviews",
	"score",
	"fonte",
	"data_coleta",
	"place_id",
	"latitude",
	"longitude",
}

// PhoneColumn is the zero-based index of the phone column in LeadHeader.
const PhoneColumn = 4

// Lead is one prospected business. Optional attributes are nil when the
// source did not provide them. Score is written once by the scorer.
type Lead struct {
	Name         string   `json:"name"`
	Niche        string   `json:"niche"`
	City         string   `json:"city"`
	Address      *string  `json:"address,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	Email        *string  `json:"email,omitempty"`
	Website      *string  `json:"website,omitempty"`
	Instagram    *string  `json:"instagram,omitempty"`
	Facebook     *string  `json:"facebook,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	TotalReviews *int     `json:"total_reviews,omitempty"`
	Score        int      `json:"score"`
	Source       string   `json:"source"`
	CollectedAt  string   `json:"collected_at"`
	PlaceID      *string  `json:"place_id,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// NewLead creates a lead stamped with the given collection time.
func NewLead(name, niche, city, source string, collectedAt time.Time) Lead {
	return Lead{
		Name:        name,
		Niche:       niche,
		City:        city,
		Source:      source,
		CollectedAt: FormatCollectedAt(collectedAt),
	}
}

// FormatCollectedAt renders a collection timestamp in UTC with second
// precision.
func FormatCollectedAt(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05")
}

// HasSocial reports whether any social media handle is present.
func (l Lead) HasSocial() bool {
	return nonEmpty(l.Instagram) || nonEmpty(l.Facebook)
}

// Row returns the lead as sink cells in LeadHeader order. Absent values are
// empty strings.
func (l Lead) Row() []string {
	return []string{
		l.Name,
		l.Niche,
		l.City,
		deref(l.Address),
		deref(l.Phone),
		deref(l.Email),
		deref(l.Website),
		deref(l.Instagram),
		deref(l.Facebook),
		formatFloat(l.Rating),
		formatInt(l.TotalReviews),
		strconv.Itoa(l.Score),
		l.Source,
		l.CollectedAt,
		deref(l.PlaceID),
		formatFloat(l.Latitude),
		formatFloat(l.Longitude),
	}
}

// Values returns the lead as typed cells in LeadHeader order. Absent values
// are untyped nil, which database drivers store as NULL.
func (l Lead) Values() []any {
	return []any{
		l.Name,
		l.Niche,
		l.City,
		value(l.Address),
		value(l.Phone),
		value(l.Email),
		value(l.Website),
		value(l.Instagram),
		value(l.Facebook),
		value(l.Rating),
		value(l.TotalReviews),
		l.Score,
		l.Source,
		l.CollectedAt,
		value(l.PlaceID),
		value(l.Latitude),
		value(l.Longitude),
	}
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Int returns a pointer to i.
func Int(i int) *int {
	return &i
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
