package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"roomledger/internal/domain"
)

// SessionService binds wallet addresses to their chosen role for the duration
// of a connection. Role is a view filter the client declares; the server-side
// gates in TransactionService consume it, and the on-chain contract stays the
// real authority.
type SessionService struct {
	store domain.SessionStore
	ttl   time.Duration
}

func NewSessionService(store domain.SessionStore, ttl time.Duration) *SessionService {
	return &SessionService{store: store, ttl: ttl}
}

func (s *SessionService) Connect(ctx context.Context, wallet string, role domain.Role) (domain.Session, error) {
	if wallet == "" {
		return domain.Session{}, fmt.Errorf("%w: wallet address is required", domain.ErrBadInput)
	}
	if !role.Valid() {
		return domain.Session{}, fmt.Errorf("%w: role must be owner or visitor", domain.ErrBadInput)
	}
	sess := domain.Session{Token: uuid.NewString(), Wallet: wallet, Role: role}
	if err := s.store.PutSession(ctx, sess, int(s.ttl.Seconds())); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	log.Info().Str("wallet", wallet).Str("role", string(role)).Msg("wallet connected")
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrNoSession
	}
	sess, ok, err := s.store.GetSession(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrNoSession
	}
	return sess, nil
}

// Disconnect clears the session. Unknown tokens disconnect silently; the end
// state is the same.
func (s *SessionService) Disconnect(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DelSession(ctx, token); err != nil {
		return err
	}
	log.Info().Msg("wallet disconnected")
	return nil
}
