package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/tmplx"
)

const (
	delimiterWidth   = 60
	checkedAtLayout  = "2006-01-02 15:04:05 MST"
	exclusiveWarning = `⚠️⚠️⚠️ EXCLUSIVE DEAL - MAY NOT BE VISIBLE ON WEBSITE ⚠️⚠️⚠️
This is an exclusive deal that may not appear on buyformeretail.com
Contact BFMR support if you want access to exclusive deals.`
)

var errNothingToCompose = errors.New("no reportable listings to compose")

const digestTemplate = `Found {{.Count}} {{.Kind}} {{.Retailer}} {{plural .Count "deal" "deals"}} on BFMR:
  • {{.Regular}} regular {{plural .Regular "deal" "deals"}}
  • {{.Exclusive}} exclusive {{plural .Exclusive "deal" "deals"}} ⚠️

{{if .Exclusive -}}
⚠️ NOTE: Exclusive deals may not be visible on the BFMR website.
Contact BFMR support if you want access to exclusive deals.

{{end -}}
({{.SinceNote}})

{{rule "=" .Width}}

{{range .Listings -}}
{{if .IsExclusive}}{{$.Warning}}

{{end -}}
Deal ID: {{.ID}}
Deal Code: {{.Code}}
Title: {{.Title}}
Retailer: {{.Retailers}}
Type: {{.RetailType}}
Retail Price: {{money .RetailPrice}}
Your Payout: {{money .PayoutPrice}}
Closes At: {{.ClosingAt}}
Exclusive: {{if .IsExclusive}}⚠️ YES - May not be accessible{{else}}No{{end}}
Bundle: {{yesno .IsBundle}}
URL: {{.URL}}

{{rule "=" $.Width}}

{{end -}}
View all deals: {{.ViewAllURL}}
Checked at: {{.CheckedAt}}
`

type digestData struct {
	Count      int
	Regular    int
	Exclusive  int
	Kind       string
	Retailer   string
	SinceNote  string
	Width      int
	Warning    string
	Listings   []models.Listing
	ViewAllURL string
	CheckedAt  string
}

// Composer renders the plain-text digest for reportable listings.
type Composer interface {
	Compose(reportable []models.Listing, checkedAt time.Time) (*models.Digest, error)
}

type composer struct {
	tmpl       *tmplx.Template
	retailer   string
	viewAllURL string
	policy     models.SeenPolicy
}

func NewComposer(cfg *config.Config) (Composer, error) {
	return newComposer(cfg.Monitor.RetailerLabel, cfg.BFMR.ViewAllURL, cfg.Monitor.Policy())
}

func newComposer(retailer, viewAllURL string, policy models.SeenPolicy) (*composer, error) {
	sample := digestData{Count: 1, Regular: 1, Listings: []models.Listing{{ID: "sample"}}}
	tmpl, err := tmplx.Parse("digest", digestTemplate, tmplx.WithValidate(sample, func(buf *bytes.Buffer) error {
		if !strings.Contains(buf.String(), "Deal ID: sample") {
			return fmt.Errorf("digest template does not render listing blocks")
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &composer{
		tmpl:       tmpl,
		retailer:   retailer,
		viewAllURL: viewAllURL,
		policy:     policy,
	}, nil
}

func (c *composer) Compose(reportable []models.Listing, checkedAt time.Time) (*models.Digest, error) {
	if len(reportable) == 0 {
		return nil, errNothingToCompose
	}

	exclusive := models.CountExclusive(reportable)
	data := digestData{
		Count:      len(reportable),
		Regular:    len(reportable) - exclusive,
		Exclusive:  exclusive,
		Kind:       c.kind(),
		Retailer:   c.retailer,
		SinceNote:  c.sinceNote(),
		Width:      delimiterWidth,
		Warning:    exclusiveWarning,
		Listings:   reportable,
		ViewAllURL: c.viewAllURL,
		CheckedAt:  checkedAt.UTC().Format(checkedAtLayout),
	}

	body, err := c.tmpl.RenderString(data)
	if err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}

	return &models.Digest{
		CheckedAt: checkedAt.UTC(),
		Subject:   c.subject(len(reportable), exclusive),
		Body:      body,
		Listings:  reportable,
	}, nil
}

func (c *composer) subject(count, exclusive int) string {
	kind := "New/Returning"
	if c.policy == models.PolicyFirstSeen {
		kind = "New"
	}
	subject := fmt.Sprintf("🚨 %d %s %s Deal(s)", count, kind, c.retailer)
	if exclusive > 0 {
		subject += fmt.Sprintf(" (%d Exclusive ⚠️)", exclusive)
	}
	return subject
}

func (c *composer) kind() string {
	if c.policy == models.PolicyFirstSeen {
		return "new"
	}
	return "new/returning"
}

func (c *composer) sinceNote() string {
	if c.policy == models.PolicyFirstSeen {
		return "These deals have not been reported before"
	}
	return "These deals were not available in the last check"
}
