package domain

// Room is one room-availability object on the ledger.
// Date is integer-encoded YYYYMMDD; Price is in the ledger's smallest unit.
type Room struct {
	ID        string `json:"id"`
	HotelName string `json:"hotel_name"`
	Date      int64  `json:"date"`
	RoomType  string `json:"room_type"`
	Price     uint64 `json:"price"`
	Capacity  uint8  `json:"capacity"`
	ImageURL  string `json:"image_url"`
	ImageHash string `json:"image_hash,omitempty"` // lowercase hex of the on-chain byte vector
	Owner     string `json:"owner"`                // empty = unowned
	RawJSON   []byte `json:"-"`                    // full ledger object payload
}

type RoomsQuery struct {
	Owner *string
	Since *int64 // keep rooms with Date >= Since
	Limit int
}

type RoomsPage struct {
	Items      []Room  `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}
