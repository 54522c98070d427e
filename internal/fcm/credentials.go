package fcm

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshMargin is how far ahead of expiry a credential is refreshed.
const DefaultRefreshMargin = 60 * time.Second

// Credential is one bearer-token snapshot. It is replaced wholesale on
// refresh, never mutated, and never persisted across restarts.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

func (c Credential) valid(margin time.Duration, now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt.Add(-margin))
}

// TokenFetcher obtains a fresh bearer credential from the identity provider.
type TokenFetcher interface {
	Fetch(ctx context.Context) (Credential, error)
}

// CredentialManager owns the shared bearer credential and serves it to all
// dispatch goroutines. Steady-state reads are an atomic snapshot load;
// refreshes run single-flight, so N concurrent cold callers cause exactly
// one downstream fetch and all share its result, errors included.
type CredentialManager struct {
	fetcher TokenFetcher
	margin  time.Duration

	group singleflight.Group
	cred  atomic.Pointer[Credential]
}

func NewCredentialManager(fetcher TokenFetcher, margin time.Duration) *CredentialManager {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &CredentialManager{fetcher: fetcher, margin: margin}
}

// Token returns a credential whose expiry is at least the safety margin in
// the future, refreshing first when the held one is absent or too close to
// expiry. Refresh failures surface as *AuthError.
func (m *CredentialManager) Token(ctx context.Context) (Credential, error) {
	if c := m.cred.Load(); c != nil && c.valid(m.margin, time.Now()) {
		return *c, nil
	}

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		// A waiter may arrive after the winner already stored a fresh
		// credential.
		if c := m.cred.Load(); c != nil && c.valid(m.margin, time.Now()) {
			return *c, nil
		}
		c, err := m.fetcher.Fetch(ctx)
		if err != nil {
			return Credential{}, &AuthError{Err: err}
		}
		m.cred.Store(&c)
		return c, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Invalidate drops the held credential so the next Token call refreshes.
// Used when the gateway rejects the bearer token outright.
func (m *CredentialManager) Invalidate() {
	m.cred.Store(nil)
}
