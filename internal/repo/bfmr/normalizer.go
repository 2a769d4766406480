package bfmr

import (
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/tidwall/gjson"
)

// wrapperKeys are tried in order when the payload is an object.
var wrapperKeys = []string{"deals", "data", "results"}

// Candidate keys per attribute, most recent schema first.
var (
	idKeys          = []string{"deal_id", "id"}
	codeKeys        = []string{"deal_code", "code"}
	titleKeys       = []string{"title", "name"}
	retailerKeys    = []string{"retailers", "retailer", "store"}
	retailTypeKeys  = []string{"retail_type", "type", "category"}
	retailPriceKeys = []string{"retail_price", "price"}
	payoutKeys      = []string{"payout_price", "payout", "commission"}
	closingKeys     = []string{"closing_at", "closes_at", "close_date"}
	exclusiveKeys   = []string{"is_exclusive_deal", "is_exclusive", "exclusive"}
	bundleKeys      = []string{"is_bundle", "bundle"}
	urlKeys         = []string{"items.0.retailer_links.0.url", "url", "link"}
)

// Normalize maps a deals payload into listings. Unknown shapes yield no
// listings; only invalid JSON is an error.
func Normalize(payload []byte) ([]models.Listing, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: response is not valid JSON", models.ErrMalformedPayload)
	}

	items := dealItems(gjson.ParseBytes(payload))
	listings := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		listings = append(listings, mapToListing(item))
	}
	return listings, nil
}

func dealItems(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	if !root.IsObject() {
		return nil
	}
	for _, key := range wrapperKeys {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

func mapToListing(item gjson.Result) models.Listing {
	return models.Listing{
		ID:          lookupString(item, idKeys, ""),
		Code:        lookupString(item, codeKeys, models.FallbackNA),
		Title:       lookupString(item, titleKeys, models.FallbackNoTitle),
		Retailers:   lookupRetailers(item),
		RetailType:  lookupString(item, retailTypeKeys, models.FallbackNA),
		RetailPrice: lookupString(item, retailPriceKeys, models.FallbackNA),
		PayoutPrice: lookupString(item, payoutKeys, models.FallbackNA),
		ClosingAt:   lookupString(item, closingKeys, models.FallbackNA),
		IsExclusive: lookupBool(item, exclusiveKeys),
		IsBundle:    lookupBool(item, bundleKeys),
		URL:         lookupString(item, urlKeys, models.FallbackNA),
	}
}

// lookup returns the first candidate present with a non-null value.
func lookup(item gjson.Result, keys []string) (gjson.Result, bool) {
	for _, key := range keys {
		v := item.Get(key)
		if v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func lookupString(item gjson.Result, keys []string, fallback string) string {
	v, ok := lookup(item, keys)
	if !ok {
		return fallback
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return fallback
	}
	return s
}

func lookupBool(item gjson.Result, keys []string) bool {
	v, ok := lookup(item, keys)
	return ok && v.Bool()
}

// lookupRetailers accepts a plain string, a list of strings, or a list of
// objects carrying a name.
func lookupRetailers(item gjson.Result) string {
	v, ok := lookup(item, retailerKeys)
	if !ok {
		return models.FallbackUnknown
	}
	if !v.IsArray() {
		if s := strings.TrimSpace(v.String()); s != "" && !v.IsObject() {
			return s
		}
		if name := v.Get("name").String(); name != "" {
			return name
		}
		return models.FallbackUnknown
	}

	names := make([]string, 0, len(v.Array()))
	for _, r := range v.Array() {
		name := r.String()
		if r.IsObject() {
			name = r.Get("name").String()
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return models.FallbackUnknown
	}
	return strings.Join(names, ", ")
}
