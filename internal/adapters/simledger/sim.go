// Package simledger is the SIMULATION_MODE stand-in for a fullnode: same port,
// in-memory state, immediate confirmation. It is wired instead of — never next
// to — the real client, so synthetic records can't leak into live chain state.
package simledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roomledger/internal/domain"
)

const (
	objectPrefix = "sim-"
	simType      = "0xsim::booking::Room"
)

type object struct {
	fields map[string]any
	owner  string
}

type Client struct {
	mu      sync.Mutex
	module  string
	objects map[string]*object
	effects map[string]domain.TxEffects
}

func New(module string) *Client {
	c := &Client{
		module:  module,
		objects: make(map[string]*object),
		effects: make(map[string]domain.TxEffects),
	}
	c.seed()
	return c
}

// seed installs the demo listings every fresh simulation starts with.
func (c *Client) seed() {
	demo := []struct {
		hotel    string
		date     uint64
		roomType string
		price    uint64
		capacity uint64
		imageURL string
		owner    string
	}{
		{"The Grand Iotan", 20260815, "Deluxe", 150_000_000, 2, "https://picsum.photos/seed/deluxe1/600/400", "0xsimowner"},
		{"The Grand Iotan", 20260816, "Suite", 300_000_000, 4, "https://picsum.photos/seed/suite1/600/400", "0xsimowner"},
		{"Seaside Shimmers", 20260901, "Standard", 100_000_000, 2, "https://picsum.photos/seed/standard1/600/400", "0xsimowner"},
		{"Seaside Shimmers", 20260901, "Family", 220_000_000, 4, "https://picsum.photos/seed/family1/600/400", "0xsimowner"},
	}
	for i, d := range demo {
		id := fmt.Sprintf("%s%04d", objectPrefix, i+1)
		c.objects[id] = &object{
			owner: d.owner,
			fields: map[string]any{
				"hotel_name": d.hotel,
				"date":       float64(d.date),
				"room_type":  d.roomType,
				"price":      float64(d.price),
				"capacity":   float64(d.capacity),
				"image_url":  d.imageURL,
				"image_hash": "",
			},
		}
	}
}

func (c *Client) GetObject(ctx context.Context, id string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return renderRaw(id, obj), nil
}

func (c *Client) GetOwnedObjects(ctx context.Context, address string) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for id, obj := range c.objects {
		if obj.owner == address {
			out = append(out, renderRaw(id, obj))
		}
	}
	return out, nil
}

// ExecuteMoveCall mutates the in-memory state the way the booking contract
// would. Argument order matches the real wire contract.
func (c *Client) ExecuteMoveCall(ctx context.Context, call domain.MoveCall) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if call.Module != "" && call.Module != c.module {
		return "", fmt.Errorf("simledger: unknown module %q", call.Module)
	}
	digest := "sim-tx-" + uuid.NewString()

	switch call.Function {
	case "mint_room":
		if len(call.Args) < 6 {
			return "", fmt.Errorf("simledger: mint_room wants 6+ args, got %d", len(call.Args))
		}
		id := objectPrefix + uuid.NewString()
		fields := map[string]any{
			"hotel_name": call.Args[0],
			"date":       toF64(call.Args[1]),
			"room_type":  call.Args[2],
			"price":      toF64(call.Args[3]),
			"capacity":   toF64(call.Args[4]),
			"image_url":  call.Args[5],
		}
		if len(call.Args) > 6 {
			fields["image_hash"] = call.Args[6]
		}
		c.objects[id] = &object{fields: fields, owner: call.Sender}
		c.effects[digest] = domain.TxEffects{Status: domain.TxConfirmed, Created: []string{id}}

	case "book_room":
		if len(call.Args) < 1 {
			return "", fmt.Errorf("simledger: book_room wants an object id")
		}
		id, _ := call.Args[0].(string)
		obj, ok := c.objects[id]
		if !ok {
			return "", domain.ErrNotFound
		}
		obj.owner = call.Sender
		c.effects[digest] = domain.TxEffects{Status: domain.TxConfirmed, Mutated: []string{id}}

	case "update_image":
		if len(call.Args) < 3 {
			return "", fmt.Errorf("simledger: update_image wants (id, url, hash)")
		}
		id, _ := call.Args[0].(string)
		obj, ok := c.objects[id]
		if !ok {
			return "", domain.ErrNotFound
		}
		if obj.owner != call.Sender {
			return "", fmt.Errorf("simledger: %s does not own %s", call.Sender, id)
		}
		obj.fields["image_url"] = call.Args[1]
		obj.fields["image_hash"] = call.Args[2]
		c.effects[digest] = domain.TxEffects{Status: domain.TxConfirmed, Mutated: []string{id}}

	default:
		return "", fmt.Errorf("simledger: unknown function %q", call.Function)
	}

	return digest, nil
}

func (c *Client) GetTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fx, ok := c.effects[digest]
	if !ok {
		return domain.TxEffects{}, domain.ErrNotFound
	}
	return fx, nil
}

// WaitForTransaction never has to wait: simulated effects are final as soon as
// the call returns.
func (c *Client) WaitForTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	return c.GetTransaction(ctx, digest)
}

// renderRaw shapes an object the way the fullnode serializes it, so the same
// normalizer runs against both implementations.
func renderRaw(id string, obj *object) map[string]any {
	fields := make(map[string]any, len(obj.fields))
	for k, v := range obj.fields {
		fields[k] = v
	}
	raw := map[string]any{
		"objectId": id,
		"content": map[string]any{
			"dataType": "moveObject",
			"type":     simType,
			"fields":   fields,
		},
	}
	if obj.owner != "" {
		raw["owner"] = map[string]any{"AddressOwner": obj.owner}
	}
	return raw
}

func toF64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case uint8:
		return float64(n)
	}
	return 0
}
