// Package cart keeps the shopper's pending selection in client-held storage.
//
// The cart is untrusted: it is sealed with a keyed digest after every mutation so that
// edits made outside the ledger are detected before checkout.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys for the cart blob and its seal.
const (
	CartKey = "cart"
	SealKey = "cart_seal"
)

// MaxLines bounds the number of distinct lines so the blob stays within one cookie.
const MaxLines = 10

var (
	ErrQuantityExceeded = errors.New("cart: quantity exceeds available stock")
	ErrInvalidQuantity  = errors.New("cart: invalid quantity")
	ErrCartTampered     = errors.New("cart: integrity check failed")
	ErrCartFull         = errors.New("cart: line limit reached")
)

// Item is one cart line. LineID is the catalog size id, so there is one line per
// product/color/size combination.
type Item struct {
	LineID       string `json:"id"`
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"price"`
	Color        string `json:"color"`
	Size         string `json:"size"`
	AvailableQty int    `json:"availableQty"`
	Image        string `json:"image"`
	MaxQuantity  int    `json:"maxQuantity"`
}

// Store is the client-side key/value storage the cart lives in.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is a Store backed by a map.
type MemoryStore map[string]string

func (m MemoryStore) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MemoryStore) Set(key, value string) { m[key] = value }
func (m MemoryStore) Delete(key string)     { delete(m, key) }

type blob struct {
	Items []Item `json:"items"`
}

// Ledger is a loaded cart. It is not safe for concurrent use; one ledger serves one request.
type Ledger struct {
	store    Store
	sealer   *Sealer
	items    []Item
	corrupt  bool
	tampered bool
}

// Reconciliation reports what Reconcile changed.
type Reconciliation struct {
	Dropped []string
	Capped  []string
}

func (r Reconciliation) Changed() bool { return len(r.Dropped) > 0 || len(r.Capped) > 0 }

// Open loads the cart from store. A blob that does not parse yields an empty ledger that
// fails Verify.
func Open(store Store, sealer *Sealer) *Ledger {
	l := &Ledger{store: store, sealer: sealer}
	raw, ok := store.Get(CartKey)
	if !ok || raw == "" {
		return l
	}
	var b blob
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		l.corrupt = true
		return l
	}
	l.items = b.Items
	return l
}

// Items returns a copy of the cart lines in insertion order.
func (l *Ledger) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Ledger) Len() int { return len(l.items) }

// Tampered reports whether a mutation had to discard contents that failed verification.
func (l *Ledger) Tampered() bool { return l.tampered }

func (l *Ledger) index(lineID string) int {
	for i, it := range l.items {
		if it.LineID == lineID {
			return i
		}
	}
	return -1
}

// Add merges item into the cart. Exceeding stock or the per-line maximum is a soft
// rejection: ErrQuantityExceeded is returned and nothing changes. A new line past
// MaxLines is rejected the same way with ErrCartFull.
func (l *Ledger) Add(item Item) error {
	if item.LineID == "" || item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	l.guard()

	if i := l.index(item.LineID); i >= 0 {
		existing := l.items[i]
		total := existing.Quantity + item.Quantity
		if total > item.AvailableQty || total > item.MaxQuantity {
			return fmt.Errorf("%w: %d requested, %d available", ErrQuantityExceeded, total, min(item.AvailableQty, item.MaxQuantity))
		}
		existing.Quantity = total
		existing.AvailableQty = item.AvailableQty
		existing.MaxQuantity = item.MaxQuantity
		l.items[i] = existing
		l.save()
		return nil
	}

	if item.Quantity > item.MaxQuantity || item.Quantity > item.AvailableQty {
		return fmt.Errorf("%w: cannot add more than %d of this item", ErrQuantityExceeded, min(item.AvailableQty, item.MaxQuantity))
	}
	if len(l.items) >= MaxLines {
		return fmt.Errorf("%w: at most %d different items", ErrCartFull, MaxLines)
	}
	l.items = append(l.items, item)
	l.save()
	return nil
}

// RemoveOne takes one unit off a line, dropping the line when it reaches zero.
func (l *Ledger) RemoveOne(lineID string) bool {
	l.guard()
	i := l.index(lineID)
	if i < 0 {
		return false
	}
	l.items[i].Quantity--
	if l.items[i].Quantity <= 0 {
		l.items = append(l.items[:i], l.items[i+1:]...)
	}
	l.save()
	return true
}

// RemoveLine drops a line regardless of its quantity.
func (l *Ledger) RemoveLine(lineID string) bool {
	l.guard()
	i := l.index(lineID)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.save()
	return true
}

// Clear empties the cart and drops the seal.
func (l *Ledger) Clear() {
	l.items = nil
	l.corrupt = false
	l.store.Delete(CartKey)
	l.store.Delete(SealKey)
}

// Subtotal is the sum of unit price times quantity over all lines.
func (l *Ledger) Subtotal() int64 {
	var total int64
	for _, it := range l.items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	return total
}

// Verify recomputes the seal over the current contents and compares it with the stored one.
func (l *Ledger) Verify() bool {
	if l.corrupt {
		return false
	}
	stored, ok := l.store.Get(SealKey)
	if !ok || stored == "" {
		return len(l.items) == 0
	}
	return l.sealer.Match(l.items, stored)
}

// Ensure is the checkout gate: a cart that fails Verify is cleared and ErrCartTampered returned.
func (l *Ledger) Ensure() error {
	if l.Verify() {
		return nil
	}
	l.Clear()
	return ErrCartTampered
}

// Reconcile applies freshly fetched availability keyed by line id. Lines with no or zero
// availability are dropped; quantities above it are capped.
func (l *Ledger) Reconcile(fresh map[string]int) Reconciliation {
	var rec Reconciliation
	if len(l.items) == 0 {
		return rec
	}
	l.guard()
	kept := l.items[:0]
	snapshotChanged := false
	for _, it := range l.items {
		avail, ok := fresh[it.LineID]
		if !ok || avail <= 0 {
			rec.Dropped = append(rec.Dropped, it.LineID)
			continue
		}
		if it.Quantity > avail {
			it.Quantity = avail
			rec.Capped = append(rec.Capped, it.LineID)
		}
		if it.MaxQuantity > avail {
			it.MaxQuantity = avail
		}
		if it.AvailableQty != avail {
			it.AvailableQty = avail
			snapshotChanged = true
		}
		kept = append(kept, it)
	}
	l.items = kept
	if rec.Changed() || snapshotChanged {
		l.save()
	}
	return rec
}

// guard discards contents that fail verification before a mutation reseals them.
func (l *Ledger) guard() {
	if !l.Verify() {
		l.items = nil
		l.corrupt = false
		l.tampered = true
	}
}

func (l *Ledger) save() {
	if len(l.items) == 0 {
		l.store.Delete(CartKey)
		l.store.Delete(SealKey)
		return
	}
	b, _ := json.Marshal(blob{Items: l.items})
	l.store.Set(CartKey, string(b))
	l.store.Set(SealKey, l.sealer.Seal(l.items))
}
