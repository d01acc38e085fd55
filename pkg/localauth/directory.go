package localauth

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/token"
)

const minPasswordLength = 6

type account struct {
	user      authstate.User
	hash      []byte
	confirmed bool
	createdAt time.Time
}

type confirmLink struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
}

// ConfirmHook receives the sealed confirmation token of a new account.
type ConfirmHook func(ctx context.Context, email, confirmToken string)

// Directory is the process-wide account registry. Safe for concurrent use.
type Directory struct {
	signer     *token.Signer
	bcryptCost int
	log        *slog.Logger
	now        func() time.Time

	confirmSecret string
	confirmTTL    time.Duration
	onConfirm     ConfirmHook

	mu       sync.RWMutex
	accounts map[string]*account
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithBcryptCost sets the bcrypt cost. Out of range values keep the default.
func WithBcryptCost(cost int) DirectoryOption {
	return func(d *Directory) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			d.bcryptCost = cost
		}
	}
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		if l != nil {
			d.log = l
		}
	}
}

// WithConfirmation requires new accounts to confirm their email before they
// can sign in. Confirmation tokens are sealed with secret and expire after ttl.
func WithConfirmation(secret string, ttl time.Duration, hook ConfirmHook) DirectoryOption {
	return func(d *Directory) {
		d.confirmSecret = secret
		if ttl > 0 {
			d.confirmTTL = ttl
		}
		d.onConfirm = hook
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDirectory creates an empty Directory issuing tokens with signer.
func NewDirectory(signer *token.Signer, opts ...DirectoryOption) (*Directory, error) {
	if signer == nil {
		return nil, ErrSignerRequired
	}
	d := &Directory{
		signer:     signer,
		bcryptCost: bcrypt.DefaultCost,
		log:        logger.Discard(),
		now:        time.Now,
		confirmTTL: 24 * time.Hour,
		accounts:   make(map[string]*account),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewFromConfig creates a Directory from cfg. confirmSecret seals
// confirmation tokens when cfg.RequireConfirmation is set.
func NewFromConfig(cfg Config, signer *token.Signer, confirmSecret string, opts ...DirectoryOption) (*Directory, error) {
	all := []DirectoryOption{WithBcryptCost(cfg.BcryptCost)}
	if cfg.RequireConfirmation {
		all = append(all, WithConfirmation(confirmSecret, cfg.ConfirmLinkTTL, nil))
	}
	return NewDirectory(signer, append(all, opts...)...)
}

// RequiresConfirmation reports whether new accounts start unconfirmed.
func (d *Directory) RequiresConfirmation() bool {
	return d.confirmSecret != ""
}

// Register creates an account. confirmed is false when the email must be
// confirmed before the first sign-in.
func (d *Directory) Register(ctx context.Context, email, password string, metadata map[string]any) (user authstate.User, confirmed bool, err error) {
	email, err = normalizeEmail(email)
	if err != nil {
		return authstate.User{}, false, err
	}
	if len(password) < minPasswordLength {
		return authstate.User{}, false, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return authstate.User{}, false, fmt.Errorf("hash password: %w", err)
	}

	acc := &account{
		user:      authstate.User{ID: uuid.NewString(), Email: email, Metadata: maps.Clone(metadata)},
		hash:      hash,
		confirmed: !d.RequiresConfirmation(),
		createdAt: d.now(),
	}

	d.mu.Lock()
	if _, exists := d.accounts[email]; exists {
		d.mu.Unlock()
		return authstate.User{}, false, ErrUserExists
	}
	d.accounts[email] = acc
	d.mu.Unlock()

	d.log.InfoContext(ctx, "local account registered",
		logger.Component("localauth"), logger.UserID(acc.user.ID))

	if !acc.confirmed {
		raw, err := token.Seal(confirmLink{Email: email, Exp: d.now().Add(d.confirmTTL).Unix()}, d.confirmSecret)
		if err != nil {
			return authstate.User{}, false, fmt.Errorf("seal confirmation: %w", err)
		}
		d.log.InfoContext(ctx, "confirmation token issued",
			logger.Component("localauth"), logger.UserID(acc.user.ID), slog.String("token", raw))
		if d.onConfirm != nil {
			d.onConfirm(ctx, email, raw)
		}
	}
	return cloneUser(acc.user), acc.confirmed, nil
}

// Authenticate checks credentials of a confirmed account.
func (d *Directory) Authenticate(_ context.Context, email, password string) (authstate.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return authstate.User{}, ErrInvalidCredentials
	}

	d.mu.RLock()
	acc, ok := d.accounts[email]
	var (
		hash      []byte
		user      authstate.User
		confirmed bool
	)
	if ok {
		hash, user, confirmed = acc.hash, cloneUser(acc.user), acc.confirmed
	}
	d.mu.RUnlock()

	if !ok {
		return authstate.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return authstate.User{}, ErrInvalidCredentials
	}
	if !confirmed {
		return authstate.User{}, ErrEmailNotConfirmed
	}
	return user, nil
}

// Confirm marks the account named by a sealed confirmation token as confirmed.
func (d *Directory) Confirm(ctx context.Context, raw string) (authstate.User, error) {
	if !d.RequiresConfirmation() {
		return authstate.User{}, ErrInvalidConfirmLink
	}
	link, err := token.Open[confirmLink](raw, d.confirmSecret)
	if err != nil || d.now().Unix() > link.Exp {
		return authstate.User{}, ErrInvalidConfirmLink
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.accounts[link.Email]
	if !ok {
		return authstate.User{}, ErrInvalidConfirmLink
	}
	acc.confirmed = true
	d.log.InfoContext(ctx, "local account confirmed",
		logger.Component("localauth"), logger.UserID(acc.user.ID))
	return cloneUser(acc.user), nil
}

// Issue mints a session for user.
func (d *Directory) Issue(user authstate.User) (*authstate.Session, error) {
	access, exp, err := d.signer.Sign(user.ID, user.Email, user.Metadata)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &authstate.Session{
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    exp,
		User:         cloneUser(user),
	}, nil
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func cloneUser(u authstate.User) authstate.User {
	u.Metadata = maps.Clone(u.Metadata)
	return u
}
