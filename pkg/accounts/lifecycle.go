package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/observability"
	"github.com/alohawaii-travel/api/pkg/whitelist"
)

var (
	// ErrDomainNotAllowed rejects sign-ins from non-whitelisted domains
	// before any account row exists or is touched.
	ErrDomainNotAllowed = errors.New("accounts: email domain not whitelisted")
	// ErrAccountDeactivated rejects sign-ins to frozen accounts. No fields
	// are updated, including last_login_at.
	ErrAccountDeactivated = errors.New("accounts: account deactivated")
)

// Sign-in outcomes recorded in metrics.
const (
	outcomeCreated      = "created"
	outcomeUpdated      = "updated"
	outcomeMalformed    = "malformed_email"
	outcomeDomainDenied = "domain_denied"
	outcomeDeactivated  = "deactivated"
	outcomeStoreError   = "store_error"
)

// LifecycleController maps one verified identity onto the account store per
// sign-in callback. It either creates a Pending account, refreshes an active
// one, or rejects the sign-in; it never changes roles.
type LifecycleController struct {
	store     Store
	whitelist *whitelist.Checker
	logger    *observability.Logger
	metrics   *observability.Metrics
	recorder  audit.Recorder
	now       func() time.Time
	newID     func() string
}

// LifecycleOption configures the controller.
type LifecycleOption func(*LifecycleController)

// WithLogger sets the structured logger.
func WithLogger(logger *observability.Logger) LifecycleOption {
	return func(c *LifecycleController) { c.logger = logger }
}

// WithMetrics sets the sign-in outcome metrics sink.
func WithMetrics(metrics *observability.Metrics) LifecycleOption {
	return func(c *LifecycleController) { c.metrics = metrics }
}

// WithRecorder sets the audit trail for account creation.
func WithRecorder(recorder audit.Recorder) LifecycleOption {
	return func(c *LifecycleController) { c.recorder = recorder }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) LifecycleOption {
	return func(c *LifecycleController) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides account ID generation, for tests.
func WithIDGenerator(newID func() string) LifecycleOption {
	return func(c *LifecycleController) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// NewLifecycleController builds the sign-in lifecycle controller.
func NewLifecycleController(store Store, checker *whitelist.Checker, opts ...LifecycleOption) *LifecycleController {
	c := &LifecycleController{
		store:     store,
		whitelist: checker,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleSignIn runs the account lifecycle for one verified identity:
//
//  1. Extract the domain (hosted-domain claim, else the part after the
//     single @). A malformed email rejects the whole attempt.
//  2. Check the whitelist; non-whitelisted domains are rejected with no
//     side effects.
//  3. Create a Pending account for first-time emails, refresh last login
//     and display fields for active ones, reject deactivated ones.
//
// Any store fault aborts the sign-in; no partial writes occur. The returned
// account is the freshly read row, the only source session claims may be
// minted from.
func (c *LifecycleController) HandleSignIn(ctx context.Context, identity Identity) (*Account, error) {
	email := NormalizeEmail(identity.Email)
	domain, err := DomainFromEmail(email)
	if err != nil {
		c.record(outcomeMalformed, email, nil)
		return nil, err
	}
	if identity.HostedDomain != "" {
		domain = whitelist.NormalizeDomain(identity.HostedDomain)
	}

	if !c.whitelist.IsAllowed(ctx, domain) {
		c.record(outcomeDomainDenied, email, nil)
		return nil, ErrDomainNotAllowed
	}

	account, err := c.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.provision(ctx, email, domain, identity)
	case err != nil:
		c.record(outcomeStoreError, email, nil)
		return nil, fmt.Errorf("accounts: sign-in lookup: %w", err)
	}
	return c.refresh(ctx, account, identity)
}

// provision creates a first-time account at role Pending. When a concurrent
// sign-in wins the unique-email race, the loser re-reads the winning row and
// continues as a refresh instead of failing.
func (c *LifecycleController) provision(ctx context.Context, email, domain string, identity Identity) (*Account, error) {
	now := c.now().UTC()
	account := &Account{
		ID:          c.newID(),
		Email:       email,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		Role:        auth.RolePending,
		Active:      true,
		Domain:      domain,
		LastLoginAt: &now,
	}
	err := c.store.Create(ctx, account)
	if errors.Is(err, ErrDuplicateEmail) {
		existing, findErr := c.store.FindByEmail(ctx, email)
		if findErr != nil {
			c.record(outcomeStoreError, email, nil)
			return nil, fmt.Errorf("accounts: resolve create race: %w", findErr)
		}
		return c.refresh(ctx, existing, identity)
	}
	if err != nil {
		c.record(outcomeStoreError, email, nil)
		return nil, fmt.Errorf("accounts: provision: %w", err)
	}
	c.record(outcomeCreated, email, account)
	c.auditCreated(ctx, account)
	return account, nil
}

// auditCreated records the first-time provisioning of an account. Recording
// failures are logged, never surfaced to the sign-in.
func (c *LifecycleController) auditCreated(ctx context.Context, account *Account) {
	if c.recorder == nil {
		return
	}
	event := &audit.Event{
		Type:       audit.EventAccountCreated,
		Status:     audit.StatusSuccess,
		ActorID:    account.ID,
		ActorEmail: account.Email,
		SubjectID:  account.ID,
		RequestID:  observability.GetRequestID(ctx),
		Metadata: map[string]interface{}{
			"role":   account.Role.String(),
			"domain": account.Domain,
		},
	}
	if err := c.recorder.Record(ctx, event); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("record audit event")
	}
}

// refresh updates last login and changed display fields on an active
// account. Deactivated accounts are frozen: nothing is written.
func (c *LifecycleController) refresh(ctx context.Context, account *Account, identity Identity) (*Account, error) {
	if !account.Active {
		c.record(outcomeDeactivated, account.Email, account)
		return nil, ErrAccountDeactivated
	}
	profile := ProfileUpdate{
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
	}
	if identity.DisplayName != "" {
		profile.DisplayName = identity.DisplayName
	}
	if identity.AvatarURL != "" {
		profile.AvatarURL = identity.AvatarURL
	}
	updated, err := c.store.RecordLogin(ctx, account.ID, profile, c.now().UTC())
	if err != nil {
		c.record(outcomeStoreError, account.Email, account)
		return nil, fmt.Errorf("accounts: record login: %w", err)
	}
	c.record(outcomeUpdated, updated.Email, updated)
	return updated, nil
}

func (c *LifecycleController) record(outcome, email string, account *Account) {
	if c.metrics != nil {
		c.metrics.RecordSignIn(outcome)
	}
	if c.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"outcome": outcome,
		"email":   email,
	}
	if account != nil {
		fields["account_id"] = account.ID
		fields["role"] = account.Role.String()
	}
	c.logger.WithFields(fields).Info("sign-in lifecycle")
}
