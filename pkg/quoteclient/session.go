package quoteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/selection"
)

const genericUpdateError = "Could not update options. Please try again."

// Item is one quote line as the public surface presents it.
type Item struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Ref         *string         `json:"ref,omitempty"`
	Description *string         `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	Unit        *string         `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	IsOptional  bool            `json:"is_optional"`
	OptionGroup *string         `json:"option_group,omitempty"`
	IsSelected  bool            `json:"isSelected"`
}

// Package is a fixed bundle offered as an alternative acceptance path.
type Package struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VAT       decimal.Decimal `json:"vat"`
	Total     decimal.Decimal `json:"total"`
	IsDefault bool            `json:"is_default"`
}

// Totals is the money summary for the current selection. After the
// first round-trip these are always the server's numbers, verbatim.
type Totals struct {
	BaseSubtotal      decimal.Decimal `json:"base_subtotal"`
	OptionalSubtotal  decimal.Decimal `json:"optional_subtotal"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	VAT               decimal.Decimal `json:"vat"`
	Total             decimal.Decimal `json:"total"`
	SelectedItemCount int             `json:"selected_item_count"`
}

type quoteSnapshot struct {
	ID               string            `json:"id"`
	CustomerName     string            `json:"customer_name"`
	ProjectName      *string           `json:"project_name"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	OptionGroupModes map[string]string `json:"option_group_modes"`
	Items            []Item            `json:"items"`
	Packages         []Package         `json:"packages"`
	Totals
}

type selectionResponse struct {
	Items   []Item `json:"items"`
	Message string `json:"message"`
	Totals
}

// AcceptResult reports a committed acceptance.
type AcceptResult struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	QuoteID     string `json:"quote_id"`
	PackageID   string `json:"package_id"`
	PackageName string `json:"package_name"`
}

// Session owns the selection state for one quote token. Toggles mutate
// it optimistically and each one triggers its own update request;
// responses reconcile back in with a last-received-wins sequence guard.
type Session struct {
	client *Client
	token  string

	mu        sync.Mutex
	state     *selection.State
	items     []Item
	packages  []Package
	totals    Totals
	currency  string
	status    string
	nextSeq   uint64
	lastSeq   uint64
	finalized bool
}

// Open fetches the quote snapshot and builds the session from the
// server-provided selection and totals.
func (c *Client) Open(ctx context.Context, token string) (*Session, error) {
	var snap quoteSnapshot
	if err := c.do(ctx, http.MethodGet, "/public/quotes/"+token, nil, &snap); err != nil {
		return nil, err
	}

	s := &Session{
		client:    c,
		token:     token,
		items:     snap.Items,
		packages:  snap.Packages,
		totals:    snap.Totals,
		currency:  snap.Currency,
		status:    snap.Status,
		finalized: snap.Status == "accepted" || snap.Status == "declined",
	}
	s.state = newSelectionState(snap.Items, snap.OptionGroupModes)
	s.state.ReplaceFrom(selectedIDs(snap.Items))
	return s, nil
}

func newSelectionState(items []Item, modes map[string]string) *selection.State {
	sel := make([]selection.Item, 0, len(items))
	for _, it := range items {
		group := ""
		if it.OptionGroup != nil {
			group = *it.OptionGroup
		}
		sel = append(sel, selection.Item{ID: it.ID, Optional: it.IsOptional, Group: group})
	}
	m := make(map[string]selection.Mode, len(modes))
	for name, mode := range modes {
		if mode == "multi" || mode == "checkbox" {
			m[name] = selection.ModeMulti
		} else {
			m[name] = selection.ModeSingle
		}
	}
	return selection.NewState(sel, m)
}

func selectedIDs(items []Item) []string {
	var ids []string
	for _, it := range items {
		if it.IsOptional && it.IsSelected {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Totals returns the last confirmed totals (or the initial snapshot's
// before any interaction).
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Items returns the quote lines as last confirmed by the server.
func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Packages returns the fixed bundles offered alongside customization.
func (s *Session) Packages() []Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Package, len(s.packages))
	copy(out, s.packages)
	return out
}

// IsSelected reports the optimistic local selection, which may be
// ahead of the last confirmed response.
func (s *Session) IsSelected(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsSelected(itemID)
}

// Toggle flips one optional item and syncs the full selection with the
// backend. The local mutation is optimistic: on request failure it is
// not reverted, the previous confirmed totals stand and the error is
// surfaced through the notifier. Concurrent toggles are permitted;
// each issues its own request and stale responses are discarded by
// sequence number.
func (s *Session) Toggle(ctx context.Context, itemID string) (Totals, error) {
	s.mu.Lock()
	if s.finalized {
		totals := s.totals
		s.mu.Unlock()
		return totals, ErrQuoteFinalized
	}

	before := s.state.SelectedIDs()
	if err := s.state.Toggle(itemID); err != nil {
		totals := s.totals
		s.mu.Unlock()
		return totals, ErrUnknownItem
	}
	after := s.state.SelectedIDs()
	if equalIDs(before, after) {
		// Clicking the already-selected radio option is a no-op.
		totals := s.totals
		s.mu.Unlock()
		return totals, nil
	}

	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	s.client.notifier.Updating()

	var resp selectionResponse
	err := s.client.do(ctx, http.MethodPost, "/public/quotes/"+s.token+"/update-selection",
		map[string]any{"selectedItemIds": after}, &resp)
	if err != nil {
		s.client.notifier.Error(genericUpdateError)
		s.mu.Lock()
		totals := s.totals
		s.mu.Unlock()
		return totals, err
	}

	s.mu.Lock()
	applied := seq > s.lastSeq
	if applied {
		s.lastSeq = seq
		s.items = resp.Items
		s.totals = resp.Totals
		s.state.ReplaceFrom(selectedIDs(resp.Items))
	}
	totals := s.totals
	s.mu.Unlock()

	if applied {
		s.client.notifier.Updated(totals)
	}
	return totals, nil
}

// AcceptPackage commits the customer's final choice. An empty package
// ID accepts the current line selection. After success the quote is
// finalized and further toggles fail with ErrQuoteFinalized.
func (s *Session) AcceptPackage(ctx context.Context, packageID string) (*AcceptResult, error) {
	s.mu.Lock()
	if s.finalized && s.status == "accepted" {
		s.mu.Unlock()
		return nil, ErrAlreadyAccepted
	}
	s.mu.Unlock()

	var result AcceptResult
	err := s.client.do(ctx, http.MethodPost, "/public/quotes/"+s.token+"/accept",
		map[string]any{"packageId": packageID}, &result)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Kind == KindValidation && reqErr.Status == http.StatusConflict {
			return nil, ErrAlreadyAccepted
		}
		s.client.notifier.Error(genericUpdateError)
		return nil, err
	}

	s.mu.Lock()
	s.finalized = true
	s.status = result.Status
	s.mu.Unlock()
	return &result, nil
}

// Decline records the customer's rejection of the quote.
func (s *Session) Decline(ctx context.Context) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/public/quotes/"+s.token+"/decline", nil, &resp); err != nil {
		s.client.notifier.Error(genericUpdateError)
		return err
	}

	s.mu.Lock()
	s.finalized = true
	s.status = "declined"
	s.mu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Kind: KindNetwork, Message: genericUpdateError}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 500:
		io.Copy(io.Discard, res.Body)
		return &RequestError{Kind: KindServer, Status: res.StatusCode, Message: genericUpdateError}
	case res.StatusCode >= 400:
		io.Copy(io.Discard, res.Body)
		return &RequestError{Kind: KindValidation, Status: res.StatusCode, Message: genericUpdateError}
	}

	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &RequestError{Kind: KindServer, Status: res.StatusCode, Message: genericUpdateError}
	}
	return nil
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders totals for logs and debugging.
func (t Totals) String() string {
	return fmt.Sprintf("subtotal=%s vat=%s total=%s selected=%d",
		t.Subtotal.StringFixed(2), t.VAT.StringFixed(2), t.Total.StringFixed(2), t.SelectedItemCount)
}
