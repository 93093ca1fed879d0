// internal/adapters/ledger/client.go
package ledger

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"roomledger/internal/adapters/observability"
	"roomledger/internal/domain"
)

// Client talks JSON-RPC to a ledger fullnode. It covers exactly the surface
// the app needs: object queries, move-call execution, confirmation polling.
type Client struct {
	base      string
	packageID string
	module    string
	hc        *http.Client
	rl        *rate.Limiter
	seq       atomic.Int64

	// confirmation polling
	pollEvery time.Duration
	pollMax   time.Duration
}

func New(base, packageID, module string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("node URL is required")
	}
	if packageID == "" {
		return nil, fmt.Errorf("package id is required")
	}
	if module == "" {
		module = "booking"
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:      base,
		packageID: packageID,
		module:    module,
		hc:        &http.Client{Timeout: 20 * time.Second},
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
		pollEvery: 500 * time.Millisecond,
		pollMax:   30 * time.Second,
	}, nil
}

// ---- Public API ----

func (c *Client) GetObject(ctx context.Context, id string) (map[string]any, error) {
	var out struct {
		Data  map[string]any `json:"data"`
		Error map[string]any `json:"error"`
	}
	err := c.call(ctx, "iota_getObject", []any{
		id,
		map[string]any{"showContent": true, "showOwner": true},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, domain.ErrNotFound
	}
	return out.Data, nil
}

func (c *Client) GetOwnedObjects(ctx context.Context, address string) ([]map[string]any, error) {
	var all []map[string]any
	var cursor any
	for {
		var out struct {
			Data []struct {
				Data map[string]any `json:"data"`
			} `json:"data"`
			HasNextPage bool `json:"hasNextPage"`
			NextCursor  any  `json:"nextCursor"`
		}
		params := []any{
			address,
			map[string]any{"options": map[string]any{"showContent": true, "showOwner": true}},
			cursor,
			nil, // page size: node default
		}
		if err := c.call(ctx, "iotax_getOwnedObjects", params, &out); err != nil {
			return nil, err
		}
		for _, d := range out.Data {
			if d.Data != nil {
				all = append(all, d.Data)
			}
		}
		if !out.HasNextPage || out.NextCursor == nil {
			return all, nil
		}
		cursor = out.NextCursor
	}
}

// ExecuteMoveCall submits one contract invocation and returns its digest.
// Signing is delegated to the node-side signer; key custody is out of scope here.
func (c *Client) ExecuteMoveCall(ctx context.Context, call domain.MoveCall) (string, error) {
	mod := call.Module
	if mod == "" {
		mod = c.module
	}
	var out struct {
		Digest string `json:"digest"`
	}
	err := c.call(ctx, "iotax_executeMoveCall", []any{
		call.Sender,
		c.packageID,
		mod,
		call.Function,
		[]any{}, // type arguments: none in the booking module
		call.Args,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Digest == "" {
		return "", fmt.Errorf("node returned no digest")
	}
	return out.Digest, nil
}

// GetTransaction looks the digest up once. ErrNotFound means the node has not
// indexed it yet; callers that can afford to block use WaitForTransaction.
func (c *Client) GetTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	return c.getTransaction(ctx, digest)
}

// WaitForTransaction polls until the transaction is finalized or the poll
// window (bounded by ctx) runs out.
func (c *Client) WaitForTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	deadline := time.Now().Add(c.pollMax)
	for {
		fx, err := c.getTransaction(ctx, digest)
		switch {
		case err == nil:
			return fx, nil
		case errors.Is(err, domain.ErrNotFound):
			// not yet indexed; keep polling
		default:
			return domain.TxEffects{}, err
		}
		if time.Now().After(deadline) {
			return domain.TxEffects{}, fmt.Errorf("confirmation wait for %s timed out", digest)
		}
		if !sleepCtx(ctx, c.pollEvery) {
			return domain.TxEffects{}, ctx.Err()
		}
	}
}

func (c *Client) getTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	var out struct {
		Effects map[string]any `json:"effects"`
	}
	err := c.call(ctx, "iota_getTransactionBlock", []any{
		digest,
		map[string]any{"showEffects": true},
	}, &out)
	if err != nil {
		return domain.TxEffects{}, err
	}
	if out.Effects == nil {
		return domain.TxEffects{}, domain.ErrNotFound
	}
	return parseEffects(out.Effects), nil
}

// parseEffects reads the status and the created/mutated object references out
// of a raw effects payload.
func parseEffects(fx map[string]any) domain.TxEffects {
	out := domain.TxEffects{Status: domain.TxFailed}
	if st, ok := fx["status"].(map[string]any); ok {
		if s, ok := st["status"].(string); ok && strings.EqualFold(s, "success") {
			out.Status = domain.TxConfirmed
		}
	}
	out.Created = refObjectIDs(fx["created"])
	out.Mutated = refObjectIDs(fx["mutated"])
	return out
}

func refObjectIDs(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		ref, ok := m["reference"].(map[string]any)
		if !ok {
			continue
		}
		if id, ok := ref["objectId"].(string); ok && id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ---- Internals ----

var (
	ErrNotFound     = fmt.Errorf("ledger: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("ledger: unauthorized")
	ErrForbidden    = errors.New("ledger: forbidden")
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs a JSON-RPC POST with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.seq.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt; the body reader is consumed per attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "roomledger/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := decodeRPC(resp.Body, out)
			resp.Body.Close()
			observability.ObserveExternal("ledger", method, resp.StatusCode, time.Since(start))
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			observability.ObserveExternal("ledger", method, resp.StatusCode, time.Since(start))
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			observability.ObserveExternal("ledger", method, resp.StatusCode, time.Since(start))
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			observability.ObserveExternal("ledger", method, resp.StatusCode, time.Since(start))
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("node %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("ledger", method, resp.StatusCode, time.Since(start))
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			observability.ObserveExternal("ledger", method, resp.StatusCode, time.Since(start))
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// decodeRPC unwraps the JSON-RPC envelope into out, mapping rpc errors to
// sentinel errors where the message allows.
func decodeRPC(r io.Reader, out any) error {
	var env rpcResponse
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return err
	}
	if env.Error != nil {
		msg := strings.ToLower(env.Error.Message)
		switch {
		case strings.Contains(msg, "not found") || strings.Contains(msg, "could not find"):
			return domain.ErrNotFound
		case strings.Contains(msg, "unauthorized"):
			return ErrUnauthorized
		default:
			return fmt.Errorf("rpc error %d: %s", env.Error.Code, env.Error.Message)
		}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
