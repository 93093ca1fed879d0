package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"roomledger/internal/app"
	"roomledger/internal/domain"
)

type fakeSessionStore struct{ sessions map[string]domain.Session }

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]domain.Session{}}
}

func (f *fakeSessionStore) PutSession(ctx context.Context, s domain.Session, ttlSec int) error {
	f.sessions[s.Token] = s
	return nil
}
func (f *fakeSessionStore) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	s, ok := f.sessions[token]
	return s, ok, nil
}
func (f *fakeSessionStore) DelSession(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func TestSessions_ConnectGetDisconnect(t *testing.T) {
	svc := app.NewSessionService(newFakeSessionStore(), time.Hour)
	ctx := context.Background()

	sess, err := svc.Connect(ctx, "0xabc", domain.RoleVisitor)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if sess.Token == "" || sess.Wallet != "0xabc" || sess.Role != domain.RoleVisitor {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := svc.Get(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Wallet != "0xabc" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := svc.Disconnect(ctx, sess.Token); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, err := svc.Get(ctx, sess.Token); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after disconnect, got %v", err)
	}
}

func TestSessions_ConnectValidation(t *testing.T) {
	svc := app.NewSessionService(newFakeSessionStore(), time.Hour)
	ctx := context.Background()

	if _, err := svc.Connect(ctx, "", domain.RoleOwner); !errors.Is(err, domain.ErrBadInput) {
		t.Fatalf("empty wallet: expected ErrBadInput, got %v", err)
	}
	if _, err := svc.Connect(ctx, "0xabc", domain.Role("admin")); !errors.Is(err, domain.ErrBadInput) {
		t.Fatalf("bad role: expected ErrBadInput, got %v", err)
	}
}

func TestSessions_GetUnknownToken(t *testing.T) {
	svc := app.NewSessionService(newFakeSessionStore(), time.Hour)
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
