package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"roomledger/internal/adapters/observability"
	"roomledger/internal/domain"
)

// Contract surface fixed by the deployed booking package.
const (
	MethodMintRoom    = "mint_room"
	MethodBookRoom    = "book_room"
	MethodUpdateImage = "update_image"
)

// TransactionService owns the mint/book/update lifecycle: role gate, call
// assembly, submission, confirmation wait, and the store refresh that follows
// a confirmed transaction. Failures are terminal per attempt; a resubmission
// is a new independent transaction.
type TransactionService struct {
	ledger domain.LedgerClient
	repo   domain.RoomRepository
	cache  domain.Cache
	today  func() int64 // YYYYMMDD
}

func NewTransactionService(l domain.LedgerClient, r domain.RoomRepository, cache domain.Cache) *TransactionService {
	return &TransactionService{ledger: l, repo: r, cache: cache, today: TodayYYYYMMDD}
}

// WithToday overrides the booking cutoff clock.
func (s *TransactionService) WithToday(f func() int64) *TransactionService {
	s.today = f
	return s
}

func TodayYYYYMMDD() int64 {
	now := time.Now().UTC()
	return int64(now.Year())*10000 + int64(now.Month())*100 + int64(now.Day())
}

type MintInput struct {
	HotelName string `json:"hotel_name"`
	Date      int64  `json:"date"`
	RoomType  string `json:"room_type"`
	Price     uint64 `json:"price"`
	Capacity  uint8  `json:"capacity"`
	ImageURL  string `json:"image_url"`
	ImageHash string `json:"image_hash"` // hex; decoded to bytes at the wire boundary
}

func (in MintInput) validate() error {
	switch {
	case in.HotelName == "":
		return fmt.Errorf("%w: hotel_name is required", domain.ErrBadInput)
	case in.RoomType == "":
		return fmt.Errorf("%w: room_type is required", domain.ErrBadInput)
	case in.Date <= 0:
		return fmt.Errorf("%w: date must be YYYYMMDD", domain.ErrBadInput)
	case in.Capacity == 0:
		return fmt.Errorf("%w: capacity must be at least 1", domain.ErrBadInput)
	}
	return nil
}

// MintRoom creates a new room listing. Only owner-role sessions reach the
// ledger; everyone else is rejected before any network call.
func (s *TransactionService) MintRoom(ctx context.Context, sess domain.Session, in MintInput) (domain.TxReceipt, error) {
	if sess.Role != domain.RoleOwner || sess.Wallet == "" {
		observability.ObserveTx("mint", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("mint: %w", domain.ErrRoleRequired)
	}
	if err := in.validate(); err != nil {
		observability.ObserveTx("mint", "rejected")
		return domain.TxReceipt{}, err
	}
	hash, err := DecodeImageHash(in.ImageHash)
	if err != nil {
		observability.ObserveTx("mint", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("%w: %v", domain.ErrBadInput, err)
	}

	// Positional argument order is the wire contract; do not reorder.
	call := domain.MoveCall{
		Sender:   sess.Wallet,
		Function: MethodMintRoom,
		Args: []any{
			in.HotelName,
			in.Date,
			in.RoomType,
			in.Price,
			in.Capacity,
			in.ImageURL,
			byteVectorArg(hash),
		},
	}

	return s.submit(ctx, "mint", call, func(fx domain.TxEffects) string {
		if len(fx.Created) > 0 {
			return fx.Created[0]
		}
		return ""
	})
}

// BookRoom transfers an availability object to the visitor's wallet. The
// past-date and self-booking checks run before submission; ledger-level
// ownership semantics remain the final authority against double booking.
func (s *TransactionService) BookRoom(ctx context.Context, sess domain.Session, roomID string) (domain.TxReceipt, error) {
	if sess.Role != domain.RoleVisitor || sess.Wallet == "" {
		observability.ObserveTx("book", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("book: %w", domain.ErrRoleRequired)
	}
	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		observability.ObserveTx("book", "rejected")
		return domain.TxReceipt{}, err
	}
	if room.Date < s.today() {
		observability.ObserveTx("book", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("book %s: %w", roomID, domain.ErrPastDate)
	}
	if room.Owner != "" && room.Owner == sess.Wallet {
		observability.ObserveTx("book", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("book %s: %w", roomID, domain.ErrAlreadyOwned)
	}

	call := domain.MoveCall{
		Sender:   sess.Wallet,
		Function: MethodBookRoom,
		Args:     []any{roomID},
	}
	return s.submit(ctx, "book", call, func(domain.TxEffects) string { return roomID })
}

// UpdateRoomImage swaps the promotional image on a listing the caller owns.
func (s *TransactionService) UpdateRoomImage(ctx context.Context, sess domain.Session, roomID, imageURL, imageHash string) (domain.TxReceipt, error) {
	if sess.Role != domain.RoleOwner || sess.Wallet == "" {
		observability.ObserveTx("update_image", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("update image: %w", domain.ErrRoleRequired)
	}
	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		observability.ObserveTx("update_image", "rejected")
		return domain.TxReceipt{}, err
	}
	if room.Owner != sess.Wallet {
		observability.ObserveTx("update_image", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("update image %s: %w", roomID, domain.ErrNotRoomOwner)
	}
	hash, err := DecodeImageHash(imageHash)
	if err != nil {
		observability.ObserveTx("update_image", "rejected")
		return domain.TxReceipt{}, fmt.Errorf("%w: %v", domain.ErrBadInput, err)
	}

	call := domain.MoveCall{
		Sender:   sess.Wallet,
		Function: MethodUpdateImage,
		Args:     []any{roomID, imageURL, byteVectorArg(hash)},
	}
	return s.submit(ctx, "update_image", call, func(domain.TxEffects) string { return roomID })
}

// TransactionStatus re-checks a digest, for callers that received a pending
// receipt. One lookup, no poll loop: a digest the node has not indexed yet
// reports as pending; node failures surface as errors instead of masquerading
// as a pending transaction.
func (s *TransactionService) TransactionStatus(ctx context.Context, digest string) (domain.TxReceipt, error) {
	if digest == "" {
		return domain.TxReceipt{}, fmt.Errorf("%w: digest is required", domain.ErrBadInput)
	}
	fx, err := s.ledger.GetTransaction(ctx, digest)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TxReceipt{Digest: digest, Status: domain.TxPending}, nil
	}
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("transaction status %s: %w", digest, err)
	}
	rcpt := domain.TxReceipt{Digest: digest, Status: fx.Status}
	if len(fx.Created) > 0 {
		rcpt.ObjectID = fx.Created[0]
	} else if len(fx.Mutated) > 0 {
		rcpt.ObjectID = fx.Mutated[0]
	}
	return rcpt, nil
}

// ---- internals ----

// submit runs the shared tail of every action: execute, await confirmation,
// refresh the affected object in the store.
func (s *TransactionService) submit(ctx context.Context, action string, call domain.MoveCall, objectOf func(domain.TxEffects) string) (domain.TxReceipt, error) {
	digest, err := s.ledger.ExecuteMoveCall(ctx, call)
	if err != nil {
		observability.ObserveTx(action, "failed")
		return domain.TxReceipt{}, fmt.Errorf("submit %s: %w", action, err)
	}

	fx, err := s.ledger.WaitForTransaction(ctx, digest)
	if err != nil {
		// The transaction may still land on-chain. Hand back the digest so the
		// caller can poll; the indexer reconciles the store either way.
		log.Warn().Str("action", action).Str("digest", digest).Err(err).
			Msg("confirmation wait failed after submit")
		observability.ObserveTx(action, "pending")
		return domain.TxReceipt{Digest: digest, Status: domain.TxPending}, nil
	}
	if fx.Status != domain.TxConfirmed {
		observability.ObserveTx(action, "failed")
		return domain.TxReceipt{Digest: digest, Status: domain.TxFailed},
			fmt.Errorf("%s transaction %s failed on-chain", action, digest)
	}

	rcpt := domain.TxReceipt{Digest: digest, Status: domain.TxConfirmed, ObjectID: objectOf(fx)}
	if rcpt.ObjectID != "" {
		if err := s.refreshObject(ctx, rcpt.ObjectID); err != nil {
			// Confirmed on-chain; a stale store row is the indexer's problem now.
			log.Warn().Str("object", rcpt.ObjectID).Err(err).Msg("post-confirmation refresh failed")
		}
	}
	observability.ObserveTx(action, "confirmed")
	return rcpt, nil
}

// lookupRoom prefers the store and falls back to a live object fetch, so a
// freshly minted room is bookable before the next indexer pass.
func (s *TransactionService) lookupRoom(ctx context.Context, id string) (domain.Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Room{}, err
	}
	raw, lerr := s.ledger.GetObject(ctx, id)
	if lerr != nil {
		return domain.Room{}, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	r := NormalizeRoom(raw)
	if r == nil {
		return domain.Room{}, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	return *r, nil
}

// refreshObject refetches one object, upserts its normalized form, and drops
// the caches that could serve a stale copy.
func (s *TransactionService) refreshObject(ctx context.Context, id string) error {
	raw, err := s.ledger.GetObject(ctx, id)
	if err != nil {
		return err
	}
	r := NormalizeRoom(raw)
	if r == nil {
		observability.ObserveSyncSkip("shape")
		return s.repo.LogSkip(ctx, id, "unrecognized object shape")
	}
	if err := s.repo.UpsertRoom(ctx, *r); err != nil {
		return err
	}
	if s.cache != nil {
		InvalidateRoom(ctx, s.cache, r.ID)
	}
	return nil
}

// byteVectorArg renders hash bytes as the number array the node expects for a
// vector<u8> argument.
func byteVectorArg(b []byte) []any {
	out := make([]any, len(b))
	for i, v := range b {
		out[i] = uint64(v)
	}
	return out
}
