package models

import "strings"

// Fallbacks used when the provider omits a display attribute.
const (
	FallbackNA      = "N/A"
	FallbackUnknown = "Unknown"
	FallbackNoTitle = "No title"
)

// Listing is one deal offered by the provider, normalized across payload versions.
type Listing struct {
	ID          string `json:"deal_id" bson:"deal_id"`
	Code        string `json:"deal_code" bson:"deal_code"`
	Title       string `json:"title" bson:"title"`
	Retailers   string `json:"retailers" bson:"retailers"`
	RetailType  string `json:"retail_type" bson:"retail_type"`
	RetailPrice string `json:"retail_price" bson:"retail_price"`
	PayoutPrice string `json:"payout_price" bson:"payout_price"`
	ClosingAt   string `json:"closing_at" bson:"closing_at"`
	IsExclusive bool   `json:"is_exclusive_deal" bson:"is_exclusive_deal"`
	IsBundle    bool   `json:"is_bundle" bson:"is_bundle"`
	URL         string `json:"url" bson:"url"`
}

// Reconcilable reports whether the listing carries an identity usable for diffing.
func (l Listing) Reconcilable() bool {
	return strings.TrimSpace(l.ID) != ""
}

// Predicate decides whether a listing belongs to the tracked subset.
type Predicate func(Listing) bool

// RetailerMatch qualifies listings whose retailer string contains any of the
// given tokens, ignoring case. Blank tokens are ignored; no tokens qualifies nothing.
func RetailerMatch(tokens ...string) Predicate {
	needles := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			needles = append(needles, t)
		}
	}
	return func(l Listing) bool {
		retailers := strings.ToLower(l.Retailers)
		for _, n := range needles {
			if strings.Contains(retailers, n) {
				return true
			}
		}
		return false
	}
}

// Filter returns the listings accepted by p, in input order.
func Filter(listings []Listing, p Predicate) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if p(l) {
			out = append(out, l)
		}
	}
	return out
}

// CountExclusive counts exclusive listings.
func CountExclusive(listings []Listing) int {
	n := 0
	for _, l := range listings {
		if l.IsExclusive {
			n++
		}
	}
	return n
}
