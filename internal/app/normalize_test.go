package app

import (
	"bytes"
	"fmt"
	"testing"

	"roomledger/internal/domain"
)

func rawRoom(id, owner string, fields map[string]any) map[string]any {
	raw := map[string]any{
		"objectId": id,
		"content": map[string]any{
			"dataType": "moveObject",
			"type":     "0xpkg::booking::Room",
			"fields":   fields,
		},
	}
	if owner != "" {
		raw["owner"] = map[string]any{"AddressOwner": owner}
	}
	return raw
}

func roomFields() map[string]any {
	return map[string]any{
		"hotel_name": "The Grand Iotan",
		"date":       float64(20260815),
		"room_type":  "Deluxe",
		"price":      float64(150000000),
		"capacity":   float64(2),
		"image_url":  "https://x/deluxe.png",
		"image_hash": "ab12cd",
	}
}

func TestNormalizeRoom_HappyPath(t *testing.T) {
	r := NormalizeRoom(rawRoom("0xroom1", "0xowner", roomFields()))
	if r == nil {
		t.Fatal("expected room, got nil")
	}
	if r.ID != "0xroom1" || r.HotelName != "The Grand Iotan" || r.Date != 20260815 {
		t.Fatalf("unexpected room: %+v", r)
	}
	if r.Price != 150000000 || r.Capacity != 2 {
		t.Fatalf("unexpected price/capacity: %+v", r)
	}
	if r.Owner != "0xowner" {
		t.Fatalf("owner = %q", r.Owner)
	}
	if r.ImageHash != "ab12cd" {
		t.Fatalf("image hash = %q", r.ImageHash)
	}
	if len(r.RawJSON) == 0 {
		t.Fatal("expected raw payload to be retained")
	}
}

func TestNormalizeRoom_WrongKindReturnsNil(t *testing.T) {
	cases := []map[string]any{
		nil,
		{"objectId": "0x1"}, // no content
		{"objectId": "0x1", "content": map[string]any{"dataType": "package"}},
		{"objectId": "0x1", "content": map[string]any{
			"dataType": "moveObject",
			"type":     "0x2::coin::Coin<0x2::iota::IOTA>",
			"fields":   map[string]any{"balance": float64(100)},
		}},
	}
	for i, raw := range cases {
		if r := NormalizeRoom(raw); r != nil {
			t.Fatalf("case %d: expected nil, got %+v", i, r)
		}
	}
}

func TestNormalizeRoom_MissingRequiredFieldsReturnsNil(t *testing.T) {
	for _, drop := range []string{"hotel_name", "date", "room_type", "price"} {
		fields := roomFields()
		delete(fields, drop)
		if r := NormalizeRoom(rawRoom("0x1", "0xo", fields)); r != nil {
			t.Fatalf("dropped %s: expected nil, got %+v", drop, r)
		}
	}
}

func TestNormalizeRoom_NoAddressOwnerMeansUnowned(t *testing.T) {
	raw := rawRoom("0x1", "", roomFields())
	if r := NormalizeRoom(raw); r == nil || r.Owner != "" {
		t.Fatalf("expected unowned room, got %+v", r)
	}

	raw["owner"] = map[string]any{"Shared": map[string]any{"initial_shared_version": float64(1)}}
	if r := NormalizeRoom(raw); r == nil || r.Owner != "" {
		t.Fatalf("shared object: expected unowned, got %+v", r)
	}
}

func TestNormalizeRoom_ImageHashFromByteVector(t *testing.T) {
	fields := roomFields()
	fields["image_hash"] = []any{float64(0xde), float64(0xad), float64(0xbe), float64(0xef)}
	r := NormalizeRoom(rawRoom("0x1", "0xo", fields))
	if r == nil {
		t.Fatal("expected room")
	}
	if r.ImageHash != "deadbeef" {
		t.Fatalf("image hash = %q", r.ImageHash)
	}
}

func TestNormalizeRoom_FlexibleNumericFields(t *testing.T) {
	fields := roomFields()
	fields["date"] = "20260815"
	fields["price"] = "150000000"
	r := NormalizeRoom(rawRoom("0x1", "0xo", fields))
	if r == nil || r.Date != 20260815 || r.Price != 150000000 {
		t.Fatalf("unexpected: %+v", r)
	}
}

func TestNormalizeRooms_DropsBadAndDuplicateRecords(t *testing.T) {
	raws := []map[string]any{
		rawRoom("0x1", "0xo", roomFields()),
		{"objectId": "0xjunk"},                  // skipped
		rawRoom("0x1", "0xother", roomFields()), // duplicate id, first wins
		rawRoom("0x2", "0xo", roomFields()),
	}
	rooms := NormalizeRooms(raws)
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].ID != "0x1" || rooms[0].Owner != "0xo" {
		t.Fatalf("first wins violated: %+v", rooms[0])
	}
	if rooms[1].ID != "0x2" {
		t.Fatalf("unexpected second room: %+v", rooms[1])
	}
}

func TestImageHash_RoundTrip32Bytes(t *testing.T) {
	for seed := 0; seed < 8; seed++ {
		in := make([]byte, 32)
		for i := range in {
			in[i] = byte((i*31 + seed*17) % 256)
		}
		enc := EncodeImageHash(in)
		out, err := DecodeImageHash(enc)
		if err != nil {
			t.Fatalf("seed %d: decode: %v", seed, err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("seed %d: round trip mismatch", seed)
		}
	}
}

func TestDecodeImageHash_RejectsNonHex(t *testing.T) {
	if _, err := DecodeImageHash("not-hex!"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
	if b, err := DecodeImageHash(""); err != nil || b != nil {
		t.Fatalf("empty hash should decode to nil, got %v %v", b, err)
	}
}

func TestPartitionRooms(t *testing.T) {
	var rooms []domain.Room
	for i := 0; i < 10; i++ {
		rooms = append(rooms, domain.Room{
			ID:   fmt.Sprintf("0x%d", i),
			Date: int64(20250101 + i*100),
		})
	}
	cutoff := int64(20250401)
	upcoming, past := PartitionRooms(rooms, cutoff)

	if len(upcoming)+len(past) != len(rooms) {
		t.Fatalf("partition lost rooms: %d + %d != %d", len(upcoming), len(past), len(rooms))
	}
	seen := map[string]bool{}
	for _, r := range upcoming {
		if r.Date < cutoff {
			t.Fatalf("upcoming room before cutoff: %+v", r)
		}
		seen[r.ID] = true
	}
	for _, r := range past {
		if r.Date >= cutoff {
			t.Fatalf("past room after cutoff: %+v", r)
		}
		if seen[r.ID] {
			t.Fatalf("room %s in both partitions", r.ID)
		}
	}
}
