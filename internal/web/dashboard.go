package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/authview"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	s.awaitReady(r, v)
	page := authview.Page(authview.Select(v.Machine.State()), s.actions)
	s.renderPage(w, r, http.StatusOK, "Dashboard", s.actions.Stream, page)
}

func (s *Server) submitCredentials(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// The form carries the mode it was rendered in; a stale tab must not
	// sign up when the user saw a sign-in form.
	if raw := r.PostForm.Get("mode"); raw != "" {
		if mode := authstate.ParseMode(raw); mode != v.Machine.State().Mode {
			v.Machine.SetMode(mode)
		}
	}
	if err := v.Machine.SubmitCredentials(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password")); err != nil {
		s.log.DebugContext(r.Context(), "credentials rejected",
			logger.Component("web"), logger.Error(err))
	}
	redirect(w, r, "/dashboard")
}

func (s *Server) startOAuth(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	provider := chi.URLParam(r, "provider")
	target, err := v.Machine.StartOAuth(r.Context(), provider)
	if err != nil {
		s.log.InfoContext(r.Context(), "oauth start failed",
			logger.Component("web"), logger.Provider(provider), logger.Error(err))
		redirect(w, r, "/dashboard")
		return
	}
	redirect(w, r, target)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	if raw := r.FormValue("mode"); raw != "" {
		v.Machine.SetMode(authstate.ParseMode(raw))
	} else {
		v.Machine.ToggleMode()
	}
	redirect(w, r, "/dashboard")
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	if err := v.Machine.SignOut(r.Context()); err != nil {
		s.log.InfoContext(r.Context(), "sign out failed",
			logger.Component("web"), logger.Error(err))
	}
	redirect(w, r, "/dashboard")
}

// stream re-renders the auth container after every state change of the
// view until the client disconnects or the view is torn down.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	detach := v.attach(time.Now())
	defer func() { detach(time.Now()) }()

	ctx := r.Context()
	sub := v.Machine.Subscribe(ctx)
	defer sub.Close()

	sse := datastar.NewSSE(w, r)
	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Receive(ctx):
			if !ok {
				return
			}
			if msg.Data.Version <= last {
				continue
			}
			last = msg.Data.Version
			err := sse.PatchElementTempl(authview.Page(authview.Select(msg.Data), s.actions))
			if err != nil {
				s.log.DebugContext(ctx, "dashboard stream closed",
					logger.Component("web"), logger.Error(err))
				return
			}
		}
	}
}

// oauthCallback completes the provider redirect for the view that started it.
func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	v, r, ok := s.view(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if desc := q.Get("error_description"); desc != "" || q.Get("error") != "" {
		s.log.InfoContext(r.Context(), "oauth provider returned an error",
			logger.Component("web"), slog.String("error", q.Get("error")), slog.String("description", desc))
		redirect(w, r, "/dashboard")
		return
	}

	exchanger, ok := v.Store().(CodeExchanger)
	if !ok {
		s.log.WarnContext(r.Context(), "oauth callback without code exchange support",
			logger.Component("web"), logger.Error(ErrCodeExchange))
		redirect(w, r, "/dashboard")
		return
	}
	if err := exchanger.ExchangeCode(r.Context(), q.Get("code")); err != nil {
		s.log.InfoContext(r.Context(), "oauth code exchange failed",
			logger.Component("web"), logger.Error(err))
	}
	redirect(w, r, "/dashboard")
}

func (s *Server) confirmEmail(w http.ResponseWriter, r *http.Request) {
	if err := s.confirm(r.Context(), r.URL.Query().Get("token")); err != nil {
		s.log.InfoContext(r.Context(), "email confirmation failed",
			logger.Component("web"), logger.Error(err))
		s.renderPage(w, r, http.StatusBadRequest, "Confirm email", "", message(err.Error()))
		return
	}
	s.renderPage(w, r, http.StatusOK, "Confirm email", "", message("Email confirmed. You can sign in now."))
}
