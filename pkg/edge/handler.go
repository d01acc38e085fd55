package edge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/token"
)

const maxBodyBytes = 64 << 10

// ResponseHook observes every function response, e.g. for metrics.
type ResponseHook func(function string, status int, elapsed time.Duration)

// Function names reported to a ResponseHook.
const (
	FnCreateCheckoutSession = "create-checkout-session"
	FnCheckSubscription     = "check-subscription"
	FnCustomerPortal        = "customer-portal"
)

// Handler serves the billing functions.
type Handler struct {
	gateway  Gateway
	verifier *token.Verifier
	log      *slog.Logger
	currency string
	hook     ResponseHook
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithDefaultCurrency overrides DefaultCurrency.
func WithDefaultCurrency(c string) Option {
	return func(h *Handler) {
		if c != "" {
			h.currency = c
		}
	}
}

// WithResponseHook registers a hook called after every response.
func WithResponseHook(fn ResponseHook) Option {
	return func(h *Handler) { h.hook = fn }
}

// NewHandler creates the functions handler. verifier authenticates the
// subscription and portal functions.
func NewHandler(gateway Gateway, verifier *token.Verifier, opts ...Option) *Handler {
	h := &Handler{
		gateway:  gateway,
		verifier: verifier,
		log:      logger.Discard(),
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns a router serving every function by name.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	r.HandleFunc("/"+FnCreateCheckoutSession, h.CreateCheckoutSession)
	r.With(h.requireAuth(FnCheckSubscription)).HandleFunc("/"+FnCheckSubscription, h.CheckSubscription)
	r.With(h.requireAuth(FnCustomerPortal)).HandleFunc("/"+FnCustomerPortal, h.CustomerPortal)
	return r
}

// CreateCheckoutSession handles POST create-checkout-session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		h.respond(w, r, FnCreateCheckoutSession, start, http.StatusMethodNotAllowed, errorBody(ErrMethodNotAllowed))
		return
	}

	var req CheckoutRequest
	if err := decode(r, &req); err != nil {
		h.respond(w, r, FnCreateCheckoutSession, start, http.StatusBadRequest, errorBody(ErrInvalidItems))
		return
	}
	if err := req.normalize(h.currency); err != nil {
		h.respond(w, r, FnCreateCheckoutSession, start, http.StatusBadRequest, errorBody(err))
		return
	}

	id, err := h.gateway.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		h.log.ErrorContext(r.Context(), "checkout session creation failed",
			logger.Component("edge"), logger.Error(err))
		h.respond(w, r, FnCreateCheckoutSession, start, http.StatusInternalServerError, errorBody(err))
		return
	}
	h.respond(w, r, FnCreateCheckoutSession, start, http.StatusOK, map[string]string{"id": id})
}

// CheckSubscription handles POST check-subscription for the bearer's email.
func (h *Handler) CheckSubscription(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		h.respond(w, r, FnCheckSubscription, start, http.StatusMethodNotAllowed, errorBody(ErrMethodNotAllowed))
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	if claims.Email == "" {
		h.respond(w, r, FnCheckSubscription, start, http.StatusBadRequest, errorBody(ErrMissingEmail))
		return
	}

	status, err := h.gateway.SubscriptionStatus(r.Context(), claims.Email)
	if err != nil {
		h.log.ErrorContext(r.Context(), "subscription lookup failed",
			logger.Component("edge"), logger.UserID(claims.Subject), logger.Error(err))
		h.respond(w, r, FnCheckSubscription, start, http.StatusInternalServerError, errorBody(err))
		return
	}
	h.respond(w, r, FnCheckSubscription, start, http.StatusOK, status)
}

// CustomerPortal handles POST customer-portal for the bearer's email.
func (h *Handler) CustomerPortal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		h.respond(w, r, FnCustomerPortal, start, http.StatusMethodNotAllowed, errorBody(ErrMethodNotAllowed))
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	if claims.Email == "" {
		h.respond(w, r, FnCustomerPortal, start, http.StatusBadRequest, errorBody(ErrMissingEmail))
		return
	}

	var req PortalRequest
	if err := decode(r, &req); err != nil {
		h.respond(w, r, FnCustomerPortal, start, http.StatusBadRequest, errorBody(ErrInvalidBody))
		return
	}
	if req.ReturnURL == "" {
		h.respond(w, r, FnCustomerPortal, start, http.StatusBadRequest, errorBody(ErrMissingReturnURL))
		return
	}

	url, err := h.gateway.PortalURL(r.Context(), claims.Email, req.ReturnURL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrCustomerNotFound) {
			status = http.StatusNotFound
		}
		h.log.ErrorContext(r.Context(), "customer portal session failed",
			logger.Component("edge"), logger.UserID(claims.Subject), logger.Error(err))
		h.respond(w, r, FnCustomerPortal, start, status, errorBody(err))
		return
	}
	h.respond(w, r, FnCustomerPortal, start, http.StatusOK, PortalResponse{URL: url})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, fn string, start time.Time, status int, body any) {
	writeJSON(w, status, body)
	if h.hook != nil {
		h.hook(fn, status, time.Since(start))
	}
	h.log.DebugContext(r.Context(), "function responded",
		logger.Component("edge"), slog.String("function", fn), logger.Status(status))
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// cors mirrors the headers browser clients need to invoke the functions.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
