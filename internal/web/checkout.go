package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/seopilot/pkg/billing"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

// pricing renders the plan grid. Loading the page ends any checkout that
// left without navigating and probes the subscription again.
func (s *Server) pricing(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	v.Redirector.Release()
	s.awaitReady(r, v)

	state := v.Machine.State()
	_ = v.Tracker.Refresh(r.Context(), state.Session)
	s.renderPage(w, r, http.StatusOK, "Pricing", "", PricingPage(buildPricing(s.catalog, v, state)))
}

func (s *Server) selectPlan(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	plan := chi.URLParam(r, "plan")
	state := v.Machine.State()

	target, err := v.Redirector.Select(r.Context(), plan, state.Session)
	switch {
	case errors.Is(err, billing.ErrPlanNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, billing.ErrCheckoutInFlight):
		redirect(w, r, "/pricing")
		return
	case err != nil:
		s.log.ErrorContext(r.Context(), "checkout selection failed",
			logger.Component("web"), logger.Plan(plan), logger.Error(err))
		v.Flash(NoticeCheckoutFailed)
		redirect(w, r, "/pricing")
		return
	}

	if isDatastar(r) {
		sse := datastar.NewSSE(w, r)
		if err := sse.PatchElementTempl(PricingPage(buildPricing(s.catalog, v, state))); err != nil {
			s.log.DebugContext(r.Context(), "failed to patch pricing", logger.Component("web"), logger.Error(err))
		}
		_ = sse.Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// manageSubscription sends the user to the customer portal, returning to
// the pricing page afterwards.
func (s *Server) manageSubscription(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	state := v.Machine.State()
	if !state.Authenticated() {
		v.Flash(NoticeSignInRequired)
		redirect(w, r, "/pricing")
		return
	}
	if s.portal == nil {
		v.Flash(NoticePortalFailed)
		redirect(w, r, "/pricing")
		return
	}

	target, err := billing.OpenPortal(r.Context(), s.portal, state.Session, s.baseURL+"/pricing")
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to open customer portal",
			logger.Component("web"), logger.UserID(state.Session.User.ID), logger.Error(err))
		v.Flash(NoticePortalFailed)
		redirect(w, r, "/pricing")
		return
	}
	redirect(w, r, target)
}
