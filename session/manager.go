// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/danielhkuo/votepro/auth"
)

const CookieName = "votepro_session"

// Manager is the scs session manager configured for the votepro cookie
type Manager struct {
	*scs.SessionManager
}

// NewManager stores sessions in store under an HMAC of their token, so
// rows read out of the store cannot be replayed as cookies.
func NewManager(store scs.Store, secret string, secure bool) *Manager {
	sm := scs.New()
	sm.Store = &keyedStore{store: store, secret: secret}
	sm.Lifetime = DefaultLifetime
	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Persist = true
	return &Manager{SessionManager: sm}
}

// View returns the typed session for a context loaded by LoadAndSave or Start
func (m *Manager) View(ctx context.Context) *Session {
	return &Session{sm: m.SessionManager, ctx: ctx}
}

// Start loads the session for token outside an HTTP request. An empty or
// unknown token yields a new session.
func (m *Manager) Start(ctx context.Context, token string) (*Session, error) {
	ctx, err := m.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	return m.View(ctx), nil
}

// keyedStore maps cookie tokens to HMAC keys before reaching the backend
type keyedStore struct {
	store  scs.Store
	secret string
}

func (k *keyedStore) key(token string) string {
	return auth.Sign(token, k.secret)
}

func (k *keyedStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	if cs, ok := k.store.(scs.CtxStore); ok {
		return cs.FindCtx(ctx, k.key(token))
	}
	return k.store.Find(k.key(token))
}

func (k *keyedStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	if cs, ok := k.store.(scs.CtxStore); ok {
		return cs.CommitCtx(ctx, k.key(token), b, expiry)
	}
	return k.store.Commit(k.key(token), b, expiry)
}

func (k *keyedStore) DeleteCtx(ctx context.Context, token string) error {
	if cs, ok := k.store.(scs.CtxStore); ok {
		return cs.DeleteCtx(ctx, k.key(token))
	}
	return k.store.Delete(k.key(token))
}

func (k *keyedStore) Find(token string) ([]byte, bool, error) {
	return k.FindCtx(context.Background(), token)
}

func (k *keyedStore) Commit(token string, b []byte, expiry time.Time) error {
	return k.CommitCtx(context.Background(), token, b, expiry)
}

func (k *keyedStore) Delete(token string) error {
	return k.DeleteCtx(context.Background(), token)
}
