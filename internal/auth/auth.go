// Package auth plumbs authentication lifecycle signals from the identity
// provider into the per-session sync controllers.
package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EventType is the kind of authentication lifecycle event.
type EventType string

const (
	// EventAcquired fires when a session becomes authenticated. The
	// credential may not be usable yet; the controller polls for it.
	EventAcquired EventType = "ACQUIRED"
	// EventLost fires when a session's authentication ends.
	EventLost EventType = "LOST"
)

// Event is a single authentication lifecycle notification.
type Event struct {
	Type          EventType
	SessionID     string
	CredentialRef string
}

// Events is the in-process fan-out of authentication events. Controllers
// hold an explicit per-session subscription and must tear it down on
// session end; a dangling listener is how duplicate-migration bugs happen.
type Events struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(Event)
}

// NewEvents creates an empty event bus.
func NewEvents() *Events {
	return &Events{subs: make(map[string]map[int]func(Event))}
}

// Subscribe registers fn for events addressed to sessionID and returns the
// unsubscribe function.
func (e *Events) Subscribe(sessionID string, fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs[sessionID] == nil {
		e.subs[sessionID] = make(map[int]func(Event))
	}
	id := e.nextID
	e.nextID++
	e.subs[sessionID][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs[sessionID], id)
		if len(e.subs[sessionID]) == 0 {
			delete(e.subs, sessionID)
		}
	}
}

// Publish delivers ev synchronously to every subscriber of its session;
// delivery order across subscribers is not guaranteed.
func (e *Events) Publish(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs[ev.SessionID]))
	for _, fn := range e.subs[ev.SessionID] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// CredentialSource answers the AuthPending poll: is there a usable bearer
// credential for this session right now?
type CredentialSource interface {
	UsableCredential(sessionID string) (string, bool)
}

// CredentialStore is the default CredentialSource: a registry of the bearer
// credentials the identity provider has issued per session. Set is called
// by whichever transport delivered the authentication event (HTTP callback
// or NATS listener).
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]string
	now   func() time.Time
}

// NewCredentialStore creates an empty credential registry.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]string), now: time.Now}
}

// Set records the credential for a session.
func (s *CredentialStore) Set(sessionID, credential string) {
	s.mu.Lock()
	s.creds[sessionID] = credential
	s.mu.Unlock()
}

// Remove forgets a session's credential.
func (s *CredentialStore) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.creds, sessionID)
	s.mu.Unlock()
}

// UsableCredential returns the session's credential if one is present and
// not expired. Expiry is read from the JWT claims without verifying the
// signature: signature verification is the identity provider's and the
// persistence API's job, this check only avoids sending a token that is
// already known to be dead.
func (s *CredentialStore) UsableCredential(sessionID string) (string, bool) {
	s.mu.RLock()
	cred, ok := s.creds[sessionID]
	s.mu.RUnlock()
	if !ok || cred == "" {
		return "", false
	}
	if !credentialLooksUsable(cred, s.now()) {
		return "", false
	}
	return cred, true
}

// credentialLooksUsable checks shape and expiry of a bearer token. Opaque
// (non-JWT) credentials are assumed usable.
func credentialLooksUsable(cred string, now time.Time) bool {
	if strings.Count(cred, ".") != 2 {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(cred, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Before(exp.Time)
}
