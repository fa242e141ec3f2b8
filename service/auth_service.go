package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/layer-3/garuda/certtree"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/metrics"
	"github.com/layer-3/garuda/ports"
)

const nonceLength = 10

// LoginResult is returned by Login: when the delegation expires and the
// public identity it was issued to
type LoginResult struct {
	Expiration        uint64
	IdentityPublicKey []byte
}

// AuthService drives the sign-in protocol: it prepares messages, verifies
// wallet signatures, maintains the certified tree and issues signed
// delegations. Mutating calls serialize on mu so the tree never diverges
// from the attested root; delegation fetches and lookups run concurrently
// under the read lock.
type AuthService struct {
	settings core.Settings

	sessions   *SessionStore
	tree       *certtree.Tree
	verifier   ports.Verifier
	identities ports.IdentityStore
	attestor   ports.Attestor
	eventPub   ports.EventPublisher
	clock      ports.Clock

	// nonceRand feeds nonce generation when the feature is enabled
	nonceRand io.Reader

	mu sync.RWMutex
}

// NewAuthService creates a new authentication service
func NewAuthService(
	settings core.Settings,
	verifier ports.Verifier,
	identities ports.IdentityStore,
	attestor ports.Attestor,
	eventPub ports.EventPublisher,
	clock ports.Clock,
) *AuthService {
	return &AuthService{
		settings:   settings,
		sessions:   NewSessionStore(),
		tree:       certtree.New(core.CertifiedKeyLength),
		verifier:   verifier,
		identities: identities,
		attestor:   attestor,
		eventPub:   eventPub,
		clock:      clock,
		nonceRand:  rand.Reader,
	}
}

// PrepareLogin builds and stores the message the wallet must sign, replacing
// any previous pending login for the address
func (s *AuthService) PrepareLogin(ctx context.Context, addressStr string) (string, error) {
	addr, err := core.ParseAddress(s.settings.Chain, addressStr)
	if err != nil {
		return "", err
	}

	nonce, err := s.generateNonce()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.sessions.PrunePrepared(now, maxPrunedPerCall)

	msg := core.BuildSignInMessage(addr, s.settings, nonce, now)
	s.sessions.PutPrepared(addr, msg)

	metrics.LoginsPrepared.Inc()
	return msg.String(), nil
}

// Login verifies a signature over the pending message for the address and
// issues a delegation to the session key. The pending message is consumed
// whether or not verification succeeds, so a failed attempt requires a new
// PrepareLogin.
func (s *AuthService) Login(ctx context.Context, signatureStr, addressStr string, sessionKey []byte) (LoginResult, error) {
	res, err := s.login(ctx, signatureStr, addressStr, sessionKey)
	if err != nil {
		metrics.LoginFailures.Inc()
		return LoginResult{}, err
	}
	metrics.LoginsCompleted.Inc()
	return res, nil
}

func (s *AuthService) login(ctx context.Context, signatureStr, addressStr string, sessionKey []byte) (LoginResult, error) {
	addr, err := core.ParseAddress(s.settings.Chain, addressStr)
	if err != nil {
		return LoginResult{}, err
	}
	if len(sessionKey) == 0 {
		return LoginResult{}, core.ErrInvalidSessionKey
	}
	signature, err := core.DecodeSignature(addr.Chain(), signatureStr)
	if err != nil {
		return LoginResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	prepared, err := s.sessions.TakePrepared(addr, now)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.verifier.Verify([]byte(prepared.Message.String()), signature, addr); err != nil {
		return LoginResult{}, err
	}

	seed := core.DeriveIdentitySeed(addr, s.settings)
	expiration := prepared.Message.IssuedAt + uint64(s.settings.SessionDuration().Nanoseconds())
	delegation := core.NewDelegation(sessionKey, expiration, s.settings.Targets)

	if err := s.commitDelegation(ctx, addr, sessionKey, seed, delegation, now); err != nil {
		return LoginResult{}, err
	}

	s.recordMappings(ctx, addr, seed)

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, addr.String(), seed.String(), expiration); err != nil {
			// The delegation is already committed, a missed event must not
			// fail the login.
			log.Warn().Err(err).Str("address", addr.String()).Msg("failed to publish login event")
		}
	}

	log.Info().Str("address", addr.String()).Str("identity", seed.String()).Msg("login completed")

	return LoginResult{
		Expiration:        expiration,
		IdentityPublicKey: core.NewIdentityPublicKey(s.attestor.PublicKey(), seed),
	}, nil
}

// commitDelegation folds expired record cleanup and the new leaf into one
// root update. If attestation rejects the new root every tree and session
// change is undone, leaving the tree on the last attested root.
func (s *AuthService) commitDelegation(ctx context.Context, addr core.Address, sessionKey []byte, seed core.IdentitySeed, delegation core.Delegation, now time.Time) error {
	key := core.CertifiedKey(seed, delegation.Hash())

	pruned := s.sessions.ExpiredCompleted(now, maxPrunedPerCall)
	for _, rec := range pruned {
		s.sessions.DeleteCompleted(rec.Address, rec.SessionKey, rec.Login.Delegation.Expiration)
		if err := s.tree.Remove(core.CertifiedKey(rec.Login.Seed, rec.Login.Delegation.Hash())); err != nil {
			log.Warn().Str("address", rec.Address).Msg("expired delegation already absent from tree")
		}
	}

	added := s.tree.Insert(key)

	if err := s.attestor.SetRoot(ctx, s.tree.RootHash()); err != nil {
		if added {
			_ = s.tree.Remove(key)
		}
		for _, rec := range pruned {
			s.tree.Insert(core.CertifiedKey(rec.Login.Seed, rec.Login.Delegation.Hash()))
			s.sessions.RestoreCompleted(rec)
		}
		log.Error().Err(err).Str("address", addr.String()).Msg("attestation failed, delegation rolled back")
		return fmt.Errorf("%w: %v", core.ErrAttestationUnavailable, err)
	}

	s.sessions.PutCompleted(addr, sessionKey, CompletedLogin{Seed: seed, Delegation: delegation})
	return nil
}

func (s *AuthService) recordMappings(ctx context.Context, addr core.Address, seed core.IdentitySeed) {
	if !s.settings.DisableAddressMapping {
		if err := s.identities.MapAddress(ctx, addr, seed); err != nil {
			log.Warn().Err(err).Str("address", addr.String()).Msg("failed to record identity mapping")
		}
	}
	if !s.settings.DisableIdentityMapping {
		if err := s.identities.MapIdentity(ctx, seed, addr); err != nil {
			log.Warn().Err(err).Str("address", addr.String()).Msg("failed to record address mapping")
		}
	}
}

// GetDelegation returns the signed delegation issued by a previous login.
// Read only: identical arguments return identical bytes for as long as no
// other login changes the tree.
func (s *AuthService) GetDelegation(ctx context.Context, addressStr string, sessionKey []byte, expiration uint64) (core.SignedDelegation, error) {
	addr, err := core.ParseAddress(s.settings.Chain, addressStr)
	if err != nil {
		return core.SignedDelegation{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	completed, err := s.sessions.GetCompleted(addr, sessionKey, expiration, s.clock.Now())
	if err != nil {
		return core.SignedDelegation{}, err
	}

	witness, err := s.tree.Witness(core.CertifiedKey(completed.Seed, completed.Delegation.Hash()))
	if err != nil {
		return core.SignedDelegation{}, core.ErrDelegationNotIssued
	}

	cert, err := s.attestor.Certificate(ctx)
	if err != nil {
		return core.SignedDelegation{}, fmt.Errorf("%w: %v", core.ErrAttestationUnavailable, err)
	}

	sig, err := core.CertifiedSignature{Certificate: cert, Witness: witness}.Encode()
	if err != nil {
		return core.SignedDelegation{}, fmt.Errorf("failed to encode certified signature: %w", err)
	}

	metrics.DelegationsFetched.Inc()
	return core.SignedDelegation{Delegation: completed.Delegation, Signature: sig}, nil
}

// IdentityForAddress resolves the identity recorded for an address
func (s *AuthService) IdentityForAddress(ctx context.Context, addressStr string) (core.IdentitySeed, error) {
	if s.settings.DisableAddressMapping {
		return core.IdentitySeed{}, core.ErrLookupDisabled
	}
	addr, err := core.ParseAddress(s.settings.Chain, addressStr)
	if err != nil {
		return core.IdentitySeed{}, err
	}
	return s.identities.SeedByAddress(ctx, addr)
}

// AddressForIdentity resolves the address an identity was derived from
func (s *AuthService) AddressForIdentity(ctx context.Context, identityStr string) (string, error) {
	if s.settings.DisableIdentityMapping {
		return "", core.ErrLookupDisabled
	}
	seed, err := core.ParseIdentitySeed(identityStr)
	if err != nil {
		return "", err
	}
	return s.identities.AddressBySeed(ctx, seed)
}

// RootHash returns the current certified tree root
func (s *AuthService) RootHash() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.RootHash()
}

func (s *AuthService) generateNonce() (string, error) {
	if !s.settings.NonceEnabled {
		return core.NoncePlaceholder, nil
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(s.nonceRand, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(nonce), nil
}
