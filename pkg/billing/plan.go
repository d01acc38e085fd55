package billing

import (
	_ "embed"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// Feature is one line of a plan's feature list.
type Feature struct {
	Text     string `yaml:"text"`
	Included bool   `yaml:"included"`
}

// Plan is a static pricing catalog entry.
type Plan struct {
	Name         string    `yaml:"name"`
	DisplayPrice string    `yaml:"price"`
	PriceID      string    `yaml:"price_id"`
	PaymentLink  string    `yaml:"payment_link"`
	Description  string    `yaml:"description"`
	MonthlyQuota int       `yaml:"monthly_quota"`
	Popular      bool      `yaml:"popular"`
	WhiteLabel   bool      `yaml:"white_label"`
	Target       string    `yaml:"target"`
	ButtonText   string    `yaml:"button_text"`
	Features     []Feature `yaml:"features"`
}

// QuotaLabel renders the monthly quota, e.g. "3 blog posts per month".
func (p Plan) QuotaLabel() string {
	if p.MonthlyQuota == 1 {
		return "1 blog post per month"
	}
	return fmt.Sprintf("%d blog posts per month", p.MonthlyQuota)
}

// Catalog is an immutable ordered list of plans.
type Catalog struct {
	plans []Plan
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// DefaultCatalog returns the built-in Basic, Pro, Ultimate and Power plans.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("billing: embedded catalog: %v", err))
	}
	return c
}

// NewCatalog validates plans and returns a Catalog over a copy of them.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}
	seen := make(map[string]struct{}, len(plans))
	for i, p := range plans {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: plan %d has no name", ErrInvalidPlan, i)
		}
		if p.PaymentLink == "" {
			return nil, fmt.Errorf("%w: plan %q has no payment link", ErrInvalidPlan, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate plan %q", ErrInvalidPlan, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	cloned := make([]Plan, len(plans))
	for i, p := range plans {
		p.Features = slices.Clone(p.Features)
		cloned[i] = p
	}
	return &Catalog{plans: cloned}, nil
}

// LoadCatalog parses a YAML catalog document with a top-level plans list.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return NewCatalog(doc.Plans...)
}

// Plans returns the plans in display order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	for i, p := range c.plans {
		p.Features = slices.Clone(p.Features)
		out[i] = p
	}
	return out
}

// Lookup finds a plan by name.
func (c *Catalog) Lookup(name string) (Plan, bool) {
	i := slices.IndexFunc(c.plans, func(p Plan) bool { return p.Name == name })
	if i < 0 {
		return Plan{}, false
	}
	return c.plans[i], true
}

// ByPriceID finds a plan by its provider price id.
func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	i := slices.IndexFunc(c.plans, func(p Plan) bool { return p.PriceID == priceID })
	if i < 0 {
		return Plan{}, false
	}
	return c.plans[i], true
}

// HasWhiteLabel reports whether any plan offers white labelling.
func (c *Catalog) HasWhiteLabel() bool {
	return slices.ContainsFunc(c.plans, func(p Plan) bool { return p.WhiteLabel })
}
