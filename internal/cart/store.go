package cart

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/state"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Listener receives every new cart snapshot after a mutation
type Listener func(items []domain.CartItem)

// Store is the single owner of the cart for this process. Every mutation
// replaces the snapshot and then writes it to the state manager; a failed
// write is logged and never surfaced to the caller.
type Store struct {
	mu        sync.Mutex
	items     []domain.CartItem
	state     state.StateManager
	key       string
	listeners map[int]Listener
	nextID    int
	version   uint64

	// notifyMu orders deliveries; delivered is the newest version handed out
	notifyMu  sync.Mutex
	delivered uint64
}

// NewStore rehydrates the cart saved under key. Unreadable or malformed
// snapshots start an empty cart.
func NewStore(ctx context.Context, sm state.StateManager, key string) *Store {
	s := &Store{
		state:     sm,
		key:       key,
		listeners: make(map[int]Listener),
	}
	s.items = s.rehydrate(ctx)
	return s
}

func (s *Store) rehydrate(ctx context.Context) []domain.CartItem {
	raw, err := s.state.Load(ctx, s.key)
	if err != nil {
		log.Warnf("⚠️ Failed to read saved cart, starting empty: %v", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warnf("⚠️ Saved cart is not valid JSON, starting empty: %v", err)
		return nil
	}

	// drop anything a previous version may have left below the minimum
	items = slices.DeleteFunc(items, func(it domain.CartItem) bool { return it.Quantity < 1 })
	log.Debugf("Rehydrated cart with %d items", len(items))
	return items
}

// AddItem increases the quantity of product by quantity, appending a new
// line when the product is not in the cart yet. A quantity below one adds
// a single unit.
func (s *Store) AddItem(product domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		if i := indexOf(items, product.ID); i >= 0 {
			items[i].Quantity += quantity
			return items
		}
		return append(items, domain.CartItem{Product: product, Quantity: quantity})
	})
}

// SetQuantity sets the quantity of a cart line. Negative values clamp to
// zero and zero removes the line.
func (s *Store) SetQuantity(productID int64, quantity int) {
	quantity = max(0, quantity)
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		if i := indexOf(items, productID); i >= 0 {
			items[i].Quantity = quantity
		}
		return slices.DeleteFunc(items, func(it domain.CartItem) bool { return it.Quantity < 1 })
	})
}

// RemoveItem drops the line for productID. Removing an absent id is a no-op.
func (s *Store) RemoveItem(productID int64) {
	s.mutate(func(items []domain.CartItem) []domain.CartItem {
		return slices.DeleteFunc(items, func(it domain.CartItem) bool { return it.ID == productID })
	})
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mutate(func([]domain.CartItem) []domain.CartItem { return nil })
}

// Items returns a copy of the current cart in insertion order
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.items)
}

// Total is the sum of price * quantity over all lines
func (s *Store) Total() decimal.Decimal {
	return Total(s.Items())
}

// Subscribe registers fn for future snapshots and returns a func that
// unregisters it. Listeners run outside the store lock, one snapshot at a
// time and never older than one already delivered. They may read the store
// but must not mutate it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Drain hands the current lines to place and empties the cart when place
// succeeds, all under the store lock so no concurrent mutation is lost
// between the two. place must not call back into the store. When place
// fails the cart is left untouched.
func (s *Store) Drain(place func(items []domain.CartItem) error) ([]domain.CartItem, error) {
	s.mu.Lock()
	items := slices.Clone(s.items)
	if err := place(slices.Clone(items)); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.items = nil
	s.persist()
	version, listeners := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, listeners, nil)
	return items, nil
}

// mutate applies fn to a copy of the snapshot, swaps it in, persists it and
// notifies listeners.
func (s *Store) mutate(fn func(items []domain.CartItem) []domain.CartItem) {
	s.mu.Lock()
	next := fn(slices.Clone(s.items))
	s.items = next
	s.persist()
	version, listeners := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, listeners, next)
}

// commitLocked must be called with mu held
func (s *Store) commitLocked() (uint64, []Listener) {
	s.version++
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return s.version, listeners
}

func (s *Store) notify(version uint64, listeners []Listener, items []domain.CartItem) {
	if len(listeners) == 0 {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	// a newer snapshot already went out
	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, l := range listeners {
		l(slices.Clone(items))
	}
}

// persist must be called with mu held
func (s *Store) persist() {
	items := s.items
	if items == nil {
		items = []domain.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		log.Errorf("❌ Failed to encode cart: %v", err)
		return
	}
	if err := s.state.Save(context.Background(), s.key, raw); err != nil {
		log.Errorf("❌ Failed to persist cart: %v", err)
	}
}

// Total is the sum of price * quantity over items, computed exactly
func Total(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it))
	}
	return total
}

// LineTotal is the subtotal of a single cart line
func LineTotal(it domain.CartItem) decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func indexOf(items []domain.CartItem, productID int64) int {
	return slices.IndexFunc(items, func(it domain.CartItem) bool { return it.ID == productID })
}
