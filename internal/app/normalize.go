package app

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"roomledger/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Field names as minted by the booking module, plus the spellings older
// package versions and indexer snapshots have been seen to use.
var roomAliases = map[string][]string{
	"id":         {"objectId", "object_id", "id"},
	"hotel_name": {"hotel_name", "hotelName", "name"},
	"date":       {"date", "checkin_date", "day"},
	"room_type":  {"room_type", "roomType", "type_name"},
	"price":      {"price", "price_base", "amount"},
	"capacity":   {"capacity", "guests", "max_guests"},
	"image_url":  {"image_url", "imageUrl", "image"},
	"image_hash": {"image_hash", "imageHash"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstStrAlias: first non-empty string for a named alias set.
func firstStrAlias(m map[string]any, key string) string {
	for _, p := range roomAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstUint64Alias: unsigned integer from the alias set (float64/int/string).
func firstUint64Alias(m map[string]any, key string) (uint64, bool) {
	for _, p := range roomAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			if v < 0 {
				continue
			}
			return uint64(v), true
		case int:
			if v < 0 {
				continue
			}
			return uint64(v), true
		case int64:
			if v < 0 {
				continue
			}
			return uint64(v), true
		case json.Number:
			if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
				return n, true
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseUint(s, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

/********** image hash codec **********/

// EncodeImageHash renders a content hash as the lowercase hex string used for
// display and transport. DecodeImageHash is its exact inverse.
func EncodeImageHash(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}

func DecodeImageHash(s string) ([]byte, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("image hash is not valid hex: %w", err)
	}
	return b, nil
}

// imageHashString accepts the hash field however the node serialized it:
// hex string, or the raw byte vector as a JSON number array.
func imageHashString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case []any:
		b := make([]byte, 0, len(t))
		for _, e := range t {
			switch n := e.(type) {
			case float64:
				if n < 0 || n > 255 {
					return ""
				}
				b = append(b, byte(n))
			case int:
				if n < 0 || n > 255 {
					return ""
				}
				b = append(b, byte(n))
			case uint64:
				if n > 255 {
					return ""
				}
				b = append(b, byte(n))
			default:
				return ""
			}
		}
		return EncodeImageHash(b)
	}
	return ""
}

/********** room normalizer **********/

// NormalizeRoom converts one raw ledger object record into a Room. It returns
// nil when the record is not a booking-module move object or lacks required
// fields; such records are skipped by callers, never treated as fatal.
func NormalizeRoom(raw map[string]any) *domain.Room {
	if raw == nil {
		return nil
	}
	if dt := lookupStr(raw, "content.dataType"); dt != "moveObject" {
		return nil
	}
	if t := lookupStr(raw, "content.type"); t != "" && !strings.Contains(t, "::booking::") {
		return nil
	}
	fields, ok := lookupAny(raw, "content.fields").(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}

	id := firstStrAlias(raw, "id")
	if id == "" {
		id = firstStrAlias(fields, "id")
	}
	hotelName := firstStrAlias(fields, "hotel_name")
	roomType := firstStrAlias(fields, "room_type")
	date, dateOK := firstUint64Alias(fields, "date")
	price, priceOK := firstUint64Alias(fields, "price")
	if id == "" || hotelName == "" || roomType == "" || !dateOK || !priceOK {
		return nil
	}

	capacity, _ := firstUint64Alias(fields, "capacity")
	if capacity > 255 {
		capacity = 255
	}

	r := domain.Room{
		ID:        id,
		HotelName: hotelName,
		Date:      int64(date),
		RoomType:  roomType,
		Price:     price,
		Capacity:  uint8(capacity),
		ImageURL:  firstStrAlias(fields, "image_url"),
		Owner:     extractOwner(raw),
	}
	for _, p := range roomAliases["image_hash"] {
		if v := lookupAny(fields, p); v != nil {
			r.ImageHash = imageHashString(v)
			break
		}
	}

	if b, err := json.Marshal(raw); err == nil {
		r.RawJSON = b
	} else {
		log.Error().Err(err).Str("context", "NormalizeRoom").Msg("failed to marshal raw object")
	}
	return &r
}

// extractOwner: explicit address holder or "" for shared/immutable/absent
// ownership metadata.
func extractOwner(raw map[string]any) string {
	owner, ok := raw["owner"].(map[string]any)
	if !ok {
		return ""
	}
	if addr, ok := owner["AddressOwner"].(string); ok {
		return addr
	}
	return ""
}

// NormalizeRooms maps a fetched collection, dropping records that fail to
// normalize and duplicate ids (first occurrence wins).
func NormalizeRooms(raws []map[string]any) []domain.Room {
	out := make([]domain.Room, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		r := NormalizeRoom(raw)
		if r == nil {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, *r)
	}
	return out
}

// PartitionRooms splits rooms into upcoming (Date >= cutoff) and past.
func PartitionRooms(rooms []domain.Room, cutoff int64) (upcoming, past []domain.Room) {
	for _, r := range rooms {
		if r.Date >= cutoff {
			upcoming = append(upcoming, r)
		} else {
			past = append(past, r)
		}
	}
	return upcoming, past
}
