// Package dedup removes duplicate leads by phone number and by fuzzy name
// match within a city.
package dedup

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/phone"
)

// DefaultThreshold is the minimum Similarity at which two names in the same
// city are considered the same business.
const DefaultThreshold = 0.8

// NormalizePhone reduces a phone number to its digits, without the Brazil
// country code. It returns "" when there are no digits.
func NormalizePhone(raw string) string {
	return strings.TrimPrefix(phone.Digits(raw), "55")
}

// Similarity returns the Ratcliff/Obershelp ratio of a and b in [0, 1],
// compared rune by rune. The result does not depend on argument order.
func Similarity(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	m := difflib.NewMatcherWithJunk(runes(a), runes(b), false, nil)
	return m.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithThreshold overrides DefaultThreshold. Values outside (0, 1] are ignored.
func WithThreshold(t float64) Option {
	return func(d *Deduplicator) {
		if t > 0 && t <= 1 {
			d.threshold = t
		}
	}
}

// Deduplicator filters a lead list against phones already stored in the
// sink and against itself.
type Deduplicator struct {
	known     map[string]struct{}
	threshold float64
}

// New creates a Deduplicator seeded with phones that are already persisted.
func New(knownPhones []string, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		known:     make(map[string]struct{}, len(knownPhones)),
		threshold: DefaultThreshold,
	}
	for _, p := range knownPhones {
		if key := NormalizePhone(p); key != "" {
			d.known[key] = struct{}{}
		}
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Threshold returns the similarity threshold in use.
func (d *Deduplicator) Threshold() float64 {
	return d.threshold
}

// Deduplicate returns the leads that survive, in input order, and how many
// were removed. Earlier leads win. The Deduplicator is not modified, so it
// can be reused for another batch against the same known phones.
func (d *Deduplicator) Deduplicate(leads []model.Lead) ([]model.Lead, int) {
	seen := make(map[string]struct{}, len(d.known)+len(leads))
	for k := range d.known {
		seen[k] = struct{}{}
	}
	byCity := make(map[string][]string)

	kept := make([]model.Lead, 0, len(leads))
	removed := 0

	for _, lead := range leads {
		key := ""
		if lead.Phone != nil {
			key = NormalizePhone(*lead.Phone)
		}
		if key != "" {
			if _, dup := seen[key]; dup {
				removed++
				continue
			}
		}

		name := strings.ToLower(lead.Name)
		if d.similarToAny(name, byCity[lead.City]) {
			removed++
			continue
		}

		kept = append(kept, lead)
		byCity[lead.City] = append(byCity[lead.City], name)
		if key != "" {
			seen[key] = struct{}{}
		}
	}

	zap.L().Info("dedup: removed duplicate leads",
		zap.Int("removed", removed),
		zap.Int("kept", len(kept)),
	)
	return kept, removed
}

func (d *Deduplicator) similarToAny(name string, accepted []string) bool {
	for _, other := range accepted {
		if Similarity(name, other) >= d.threshold {
			return true
		}
	}
	return false
}

// KnownPhones returns the normalized seed phones, sorted.
func (d *Deduplicator) KnownPhones() []string {
	out := make([]string, 0, len(d.known))
	for k := range d.known {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

