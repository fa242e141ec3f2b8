package service

import (
	"sync"
	"time"

	"github.com/layer-3/garuda/core"
)

// maxPrunedPerCall bounds opportunistic cleanup so no single protocol call
// stalls on a large expired backlog
const maxPrunedPerCall = 10

// PreparedLogin is the single pending sign-in for an address
type PreparedLogin struct {
	Address core.Address
	Message core.SignInMessage
}

// CompletedLogin is the outcome of a successful login, kept until the
// delegation expires so it can be fetched again
type CompletedLogin struct {
	Seed       core.IdentitySeed
	Delegation core.Delegation
}

// CompletedRecord pairs a completed login with its lookup key, used when
// pruning and restoring entries around a root update
type CompletedRecord struct {
	Address    string
	SessionKey []byte
	Login      CompletedLogin
}

type completedKey struct {
	address    string
	sessionKey string
	expiration uint64
}

// SessionStore tracks login state per address: at most one prepared message,
// plus completed logins keyed by address, session key and expiration
type SessionStore struct {
	mu        sync.RWMutex
	prepared  map[string]PreparedLogin
	completed map[completedKey]CompletedLogin
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		prepared:  make(map[string]PreparedLogin),
		completed: make(map[completedKey]CompletedLogin),
	}
}

// PutPrepared stores the pending message for an address, replacing any
// previous one
func (s *SessionStore) PutPrepared(addr core.Address, msg core.SignInMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prepared[addr.String()] = PreparedLogin{Address: addr, Message: msg}
}

// TakePrepared consumes the pending message for an address. The entry is
// removed whether or not the caller's verification succeeds afterwards, so
// each prepared message can be attempted exactly once.
func (s *SessionStore) TakePrepared(addr core.Address, now time.Time) (PreparedLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.prepared[addr.String()]
	if !exists {
		return PreparedLogin{}, core.ErrLoginNotFound
	}
	delete(s.prepared, addr.String())

	if p.Message.Expired(now) {
		return PreparedLogin{}, core.ErrLoginExpired
	}
	return p, nil
}

// PrunePrepared removes up to max expired pending messages and reports how
// many it removed
func (s *SessionStore) PrunePrepared(now time.Time, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, p := range s.prepared {
		if removed >= max {
			break
		}
		if p.Message.Expired(now) {
			delete(s.prepared, key)
			removed++
		}
	}
	return removed
}

// PutCompleted records a successful login
func (s *SessionStore) PutCompleted(addr core.Address, sessionKey []byte, c CompletedLogin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := completedKey{
		address:    addr.String(),
		sessionKey: string(sessionKey),
		expiration: c.Delegation.Expiration,
	}
	s.completed[k] = c
}

// GetCompleted returns the completed login for the exact address, session
// key and expiration triple. A live login under the same address and session
// key but another expiration reports ErrLoginMismatch, telling a racing
// re-login apart from a delegation that was never issued.
func (s *SessionStore) GetCompleted(addr core.Address, sessionKey []byte, expiration uint64, now time.Time) (CompletedLogin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := completedKey{address: addr.String(), sessionKey: string(sessionKey), expiration: expiration}
	if c, exists := s.completed[k]; exists {
		if c.Delegation.Expired(now) {
			return CompletedLogin{}, core.ErrDelegationExpired
		}
		return c, nil
	}

	for key, c := range s.completed {
		if key.address == k.address && key.sessionKey == k.sessionKey && !c.Delegation.Expired(now) {
			return CompletedLogin{}, core.ErrLoginMismatch
		}
	}
	return CompletedLogin{}, core.ErrDelegationNotIssued
}

// ExpiredCompleted lists up to max completed logins whose delegations have
// expired, without removing them
func (s *SessionStore) ExpiredCompleted(now time.Time, max int) []CompletedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CompletedRecord
	for k, c := range s.completed {
		if len(out) >= max {
			break
		}
		if c.Delegation.Expired(now) {
			out = append(out, CompletedRecord{
				Address:    k.address,
				SessionKey: []byte(k.sessionKey),
				Login:      c,
			})
		}
	}
	return out
}

// DeleteCompleted removes one completed login
func (s *SessionStore) DeleteCompleted(address string, sessionKey []byte, expiration uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.completed, completedKey{address: address, sessionKey: string(sessionKey), expiration: expiration})
}

// RestoreCompleted reinstates a pruned record, used when a root update has
// to be rolled back
func (s *SessionStore) RestoreCompleted(rec CompletedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := completedKey{
		address:    rec.Address,
		sessionKey: string(rec.SessionKey),
		expiration: rec.Login.Delegation.Expiration,
	}
	s.completed[k] = rec.Login
}
