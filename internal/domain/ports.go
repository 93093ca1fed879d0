package domain

import "context"

type RoomRepository interface {
	// Write paths
	UpsertRoom(ctx context.Context, r Room) error
	UpsertRooms(ctx context.Context, rs []Room) error
	LogSkip(ctx context.Context, objectID string, reason string) error

	// Read paths
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, q RoomsQuery) (RoomsPage, error)
}

// LedgerClient is the fullnode collaborator. Raw objects come back as loosely
// typed maps; interpreting them is the normalizer's job.
type LedgerClient interface {
	GetObject(ctx context.Context, id string) (map[string]any, error)
	GetOwnedObjects(ctx context.Context, address string) ([]map[string]any, error)
	ExecuteMoveCall(ctx context.Context, call MoveCall) (string, error)
	// GetTransaction is a single lookup; ErrNotFound means not yet indexed.
	GetTransaction(ctx context.Context, digest string) (TxEffects, error)
	// WaitForTransaction polls GetTransaction until finalized or the window ends.
	WaitForTransaction(ctx context.Context, digest string) (TxEffects, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type SessionStore interface {
	PutSession(ctx context.Context, s Session, ttlSec int) error
	GetSession(ctx context.Context, token string) (Session, bool, error)
	DelSession(ctx context.Context, token string) error
}

// Suggester proposes a promotional image for a room listing.
type Suggester interface {
	SuggestImage(ctx context.Context, req SuggestionRequest) (Suggestion, error)
}

type SuggestionRequest struct {
	HotelName   string `json:"hotel_name"`
	RoomType    string `json:"room_type"`
	BookingData string `json:"booking_data"` // free-form JSON blob
	MarketData  string `json:"market_data"`  // free-form JSON blob
}

type Suggestion struct {
	ImageURL  string `json:"image_url"`
	ImageHash string `json:"image_hash"`
	Rationale string `json:"rationale"`
}
