// Package cartclient is a storefront-side proxy over the cart API. It keeps
// a local mirror of the cart, applies every mutation optimistically before
// the request goes out, and rolls the mirror back to a snapshot when the
// server rejects the change. Free lines are recomputed locally from the
// published rule list so the UI never waits on the server to show a gift.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// Line mirrors one cart line locally.
type Line struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	IsFree         bool      `json:"is_free"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// Rule is the published free-gift rule shape used for local eligibility.
type Rule struct {
	ProductID          uuid.UUID `json:"product_id"`
	MinOrderValueCents int64     `json:"min_order_value_cents"`
}

// APIError carries the server's coded rejection.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cart api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Option tweaks client construction.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRules seeds the rule list used for local gift eligibility.
func WithRules(rules []Rule) Option {
	return func(c *Client) { c.rules = rules }
}

// Client holds the local cart mirror. All methods are safe for concurrent
// use.
type Client struct {
	mu    sync.Mutex
	http  *http.Client
	base  string
	token string

	cartID uuid.UUID
	lines  []Line
	rules  []Rule
}

// New builds a client against the API base URL, e.g. "https://shop.example.com/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: defaultTimeout},
		base: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSessionToken installs the bearer token for subsequent calls.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// snapshot copies the mirror so a failed mutation can restore it exactly.
func (c *Client) snapshot() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Client) restore(snap []Line) {
	c.lines = snap
}

// Refresh replaces the mirror with the server's view of the cart.
func (c *Client) Refresh(ctx context.Context) error {
	view, err := c.do(ctx, http.MethodGet, "/cart", nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adopt(view)
	return nil
}

// AddItem optimistically adds quantity of the product, then confirms with
// the server. A synthesized temporary line id is swapped for the server's id
// on success; on failure the mirror rolls back untouched.
func (c *Client) AddItem(ctx context.Context, productID uuid.UUID, quantity int, unitPriceCents int64) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	c.mu.Lock()
	snap := c.snapshot()
	c.applyAdd(productID, quantity, unitPriceCents)
	c.recomputeFreeLines()
	c.mu.Unlock()

	view, err := c.do(ctx, http.MethodPost, "/cart/items", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.restore(snap)
		return err
	}
	// Adopting the server view swaps any temporary line ids for real ones.
	c.adopt(view)
	return nil
}

// UpdateQuantity optimistically sets a paid line's quantity. Zero or less is
// a removal, matching the server's policy.
func (c *Client) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, lineID)
	}

	c.mu.Lock()
	snap := c.snapshot()
	if !c.applySetQuantity(lineID, quantity) {
		c.mu.Unlock()
		return fmt.Errorf("line %s not found locally", lineID)
	}
	c.recomputeFreeLines()
	c.mu.Unlock()

	view, err := c.do(ctx, http.MethodPut, "/cart/items/"+lineID.String(), map[string]any{
		"quantity": quantity,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.restore(snap)
		return err
	}
	c.adopt(view)
	return nil
}

// RemoveItem optimistically drops the line. Removing an id the mirror does
// not hold is a no-op locally and idempotent on the server.
func (c *Client) RemoveItem(ctx context.Context, lineID uuid.UUID) error {
	c.mu.Lock()
	snap := c.snapshot()
	c.applyRemove(lineID)
	c.recomputeFreeLines()
	c.mu.Unlock()

	view, err := c.do(ctx, http.MethodDelete, "/cart/items/"+lineID.String(), nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.restore(snap)
		return err
	}
	c.adopt(view)
	return nil
}

// ClearCart optimistically empties the mirror, then asks the server to do
// the same.
func (c *Client) ClearCart(ctx context.Context) error {
	c.mu.Lock()
	snap := c.snapshot()
	c.lines = nil
	cartID := c.cartID
	c.mu.Unlock()

	if cartID == uuid.Nil {
		return nil
	}
	_, err := c.do(ctx, http.MethodDelete, "/cart/"+cartID.String(), nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.restore(snap)
		return err
	}
	return nil
}

// Lines returns a copy of the mirror.
func (c *Client) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subtotal sums the paid lines.
func (c *Client) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.lines)
}

// TotalItems counts units across all lines, gifts included.
func (c *Client) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// IsEmpty reports whether the mirror holds no lines.
func (c *Client) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func subtotal(lines []Line) int64 {
	var sum int64
	for _, line := range lines {
		if line.IsFree {
			continue
		}
		sum += int64(line.Quantity) * line.UnitPriceCents
	}
	return sum
}

// applyAdd increments an existing paid line or synthesizes a new one under a
// temporary id. Returns the affected line id.
func (c *Client) applyAdd(productID uuid.UUID, quantity int, unitPriceCents int64) uuid.UUID {
	for i := range c.lines {
		if !c.lines[i].IsFree && c.lines[i].ProductID == productID {
			c.lines[i].Quantity += quantity
			return c.lines[i].ID
		}
	}
	line := Line{
		ID:             uuid.New(),
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}
	c.lines = append(c.lines, line)
	return line.ID
}

func (c *Client) applySetQuantity(lineID uuid.UUID, quantity int) bool {
	for i := range c.lines {
		if c.lines[i].ID == lineID && !c.lines[i].IsFree {
			c.lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Client) applyRemove(lineID uuid.UUID) {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// recomputeFreeLines mirrors the server's reconciliation against the seeded
// rule list: gifts appear and disappear with the paid subtotal, one unit
// each, and never without at least one paid line.
func (c *Client) recomputeFreeLines() {
	paid := false
	for _, line := range c.lines {
		if !line.IsFree {
			paid = true
			break
		}
	}
	sum := subtotal(c.lines)

	eligible := map[uuid.UUID]struct{}{}
	if paid {
		for _, rule := range c.rules {
			if sum >= rule.MinOrderValueCents {
				eligible[rule.ProductID] = struct{}{}
			}
		}
	}

	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.IsFree {
			if _, ok := eligible[line.ProductID]; !ok {
				continue
			}
			line.Quantity = 1
			delete(eligible, line.ProductID)
		}
		kept = append(kept, line)
	}
	c.lines = kept

	for _, rule := range c.rules {
		if _, ok := eligible[rule.ProductID]; !ok {
			continue
		}
		delete(eligible, rule.ProductID)
		c.lines = append(c.lines, Line{
			ID:        uuid.New(),
			ProductID: rule.ProductID,
			IsFree:    true,
			Quantity:  1,
		})
	}
}

type viewPayload struct {
	ID    uuid.UUID `json:"id"`
	Items []Line    `json:"items"`
}

// adopt replaces the mirror with the server's authoritative view, swapping
// any temporary ids for real ones.
func (c *Client) adopt(view *viewPayload) {
	if view == nil {
		return
	}
	c.cartID = view.ID
	c.lines = make([]Line, len(view.Items))
	copy(c.lines, view.Items)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*viewPayload, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Unlock()

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		return nil, &APIError{
			StatusCode: res.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}
	if res.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil, nil
	}

	var envelope struct {
		Data viewPayload `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &envelope.Data, nil
}
