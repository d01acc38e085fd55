package web

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
)

// PlanCard is one rendered plan.
type PlanCard struct {
	Plan       billing.Plan
	Current    bool
	Processing bool
	Disabled   bool
}

// Pricing is everything the pricing page shows.
type Pricing struct {
	Cards         []PlanCard
	Notice        string
	Flash         string
	Authenticated bool
	CanManage     bool
	WhiteLabel    bool
	SelectAction  string
	ManageAction  string
}

// buildPricing derives the page from the view's current state. The manage
// button needs a signed-in user with a known tier.
func buildPricing(catalog *billing.Catalog, v *View, state authstate.State) Pricing {
	inFlight := v.Redirector.InFlight()
	_, subscribed := v.Tracker.Tier()

	p := Pricing{
		Notice:        v.Tracker.Notice(),
		Flash:         v.TakeFlash(),
		Authenticated: state.Authenticated(),
		WhiteLabel:    catalog.HasWhiteLabel(),
		SelectAction:  "/pricing/select",
		ManageAction:  "/pricing/manage",
	}
	p.CanManage = p.Authenticated && subscribed

	for _, plan := range catalog.Plans() {
		current := p.Authenticated && v.Tracker.IsCurrent(plan.Name)
		processing := inFlight != "" && inFlight == plan.Name
		p.Cards = append(p.Cards, PlanCard{
			Plan:       plan,
			Current:    current,
			Processing: processing,
			Disabled:   current || inFlight != "",
		})
	}
	return p
}

// PricingPage renders the plan grid.
func PricingPage(p Pricing) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<main class="pricing" id="pricing">`)
		hw.raw(`<header><h1>Simple, Transparent Pricing</h1>`)
		hw.raw(`<p>Choose the plan that best fits your business needs. All plans include our core SEO automation features.</p>`)
		for _, msg := range []string{p.Flash, p.Notice} {
			if msg != "" {
				hw.raw(`<p class="notice" role="status">`)
				hw.text(msg)
				hw.raw(`</p>`)
			}
		}
		if p.CanManage {
			hw.raw(`<form method="post" action="`)
			hw.text(p.ManageAction)
			hw.raw(`"><button type="submit" class="manage">Manage Subscription</button></form>`)
		}
		hw.raw(`</header><div class="plans">`)
		if hw.err != nil {
			return hw.err
		}
		for _, card := range p.Cards {
			if err := PlanCardView(card, p.SelectAction).Render(ctx, w); err != nil {
				return err
			}
		}
		hw.raw(`</div>`)
		if p.WhiteLabel {
			hw.raw(`<section class="white-label"><h2>White Label</h2>`)
			hw.raw(`<p>Publish the generated content under your own brand, without any reference to us.</p></section>`)
		}
		if !p.Authenticated {
			hw.raw(`<p class="signin-hint"><a href="/dashboard">Sign in</a> to see your current plan.</p>`)
		}
		hw.raw(`</main>`)
		return hw.err
	})
}

// PlanCardView renders one plan card with its select form.
func PlanCardView(c PlanCard, selectAction string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		plan := c.Plan
		class := "plan"
		switch {
		case c.Current:
			class += " current"
		case plan.Popular:
			class += " popular"
		}

		hw := &htmlWriter{w: w}
		hw.raw(`<article class="`, class, `" data-plan="`)
		hw.text(plan.Name)
		hw.raw(`">`)
		if plan.Popular {
			hw.raw(`<span class="badge">Most Popular</span>`)
		}
		if c.Current {
			hw.raw(`<span class="badge current">Your Current Plan</span>`)
		}
		if plan.WhiteLabel {
			hw.raw(`<span class="badge white-label">White Label</span>`)
		}
		hw.raw(`<h2>`)
		hw.text(plan.Name)
		hw.raw(`</h2>`)
		if plan.Description != "" {
			hw.raw(`<p class="description">`)
			hw.text(plan.Description)
			hw.raw(`</p>`)
		}
		hw.raw(`<p class="price"><strong>`)
		hw.text(plan.DisplayPrice)
		hw.raw(`</strong><span>/month</span></p><p class="quota">`)
		hw.text(plan.QuotaLabel())
		hw.raw(`</p><ul class="features">`)
		for _, f := range plan.Features {
			if f.Included {
				hw.raw(`<li class="included">`)
			} else {
				hw.raw(`<li class="excluded">`)
			}
			hw.text(f.Text)
			hw.raw(`</li>`)
		}
		hw.raw(`</ul>`)
		if plan.Target != "" {
			hw.raw(`<p class="target">`)
			hw.text(plan.Target)
			hw.raw(`</p>`)
		}

		action := selectAction + "/" + url.PathEscape(plan.Name)
		hw.raw(`<form method="post" action="`)
		hw.text(action)
		hw.raw(`" data-on:submit__prevent="@post('`)
		hw.text(action)
		hw.raw(`')"><button type="submit"`)
		if c.Disabled {
			hw.raw(` disabled`)
		}
		hw.raw(`>`)
		switch {
		case c.Processing:
			hw.raw(`Processing...`)
		case c.Current:
			hw.raw(`Your Current Plan`)
		case plan.ButtonText != "":
			hw.text(plan.ButtonText)
		default:
			hw.raw(`Choose `)
			hw.text(plan.Name)
		}
		hw.raw(`</button></form></article>`)
		return hw.err
	})
}
