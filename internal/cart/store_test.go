package cart

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/state"
	"weldzone/storefront/internal/state/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cartKey = "weldzone_cart"

func newBolt(t *testing.T) state.StateManager {
	t.Helper()
	sm, err := state.NewBoltStateManager(filepath.Join(t.TempDir(), "cart.db"), "storefront")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Close() })
	return sm
}

func product(id int64, name string, price float64) domain.Product {
	return domain.Product{ID: id, Name: name, Price: price, State: domain.ProductStateActive}
}

func TestStore_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Same product accumulates quantities", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)

		s.AddItem(product(5, "Careta", 500), 1)
		s.AddItem(product(5, "Careta", 500), 3)

		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, int64(5), items[0].ID)
		assert.Equal(t, 4, items[0].Quantity)
	})

	t.Run("Quantity equals the sum of all adds", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)

		adds := []int{2, 7, 1, 4}
		want := 0
		for _, q := range adds {
			s.AddItem(product(9, "Electrodo", 12.5), q)
			want += q
		}

		require.Len(t, s.Items(), 1)
		assert.Equal(t, want, s.Items()[0].Quantity)
	})

	t.Run("New products append in order", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)

		s.AddItem(product(3, "Guante", 150), 1)
		s.AddItem(product(1, "Careta", 500), 1)
		s.AddItem(product(2, "Soldadora", 4500), 1)

		items := s.Items()
		require.Len(t, items, 3)
		assert.Equal(t, []int64{3, 1, 2}, []int64{items[0].ID, items[1].ID, items[2].ID})
	})

	t.Run("Non-positive quantity adds one unit", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)

		s.AddItem(product(1, "Careta", 500), 0)
		s.AddItem(product(1, "Careta", 500), -4)

		assert.Equal(t, 2, s.Items()[0].Quantity)
	})
}

func TestStore_SetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("Set to zero removes the line", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)
		s.AddItem(product(2, "Guante", 150), 1)

		s.SetQuantity(1, 0)

		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, int64(2), items[0].ID)
	})

	t.Run("Negative quantity clamps and removes", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)

		s.SetQuantity(1, -3)

		assert.Empty(t, s.Items())
	})

	t.Run("Set to zero and remove are equivalent", func(t *testing.T) {
		a := NewStore(ctx, newBolt(t), cartKey)
		b := NewStore(ctx, newBolt(t), cartKey)
		for _, s := range []*Store{a, b} {
			s.AddItem(product(1, "Careta", 500), 2)
			s.AddItem(product(2, "Guante", 150), 3)
		}

		a.SetQuantity(2, 0)
		b.RemoveItem(2)

		assert.Equal(t, a.Items(), b.Items())
	})

	t.Run("Set quantity updates in place", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)

		s.SetQuantity(1, 6)

		assert.Equal(t, 6, s.Items()[0].Quantity)
	})

	t.Run("Unknown ids are no-ops", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)

		s.SetQuantity(42, 3)
		s.RemoveItem(42)
		s.RemoveItem(42)

		require.Len(t, s.Items(), 1)
		assert.Equal(t, 2, s.Items()[0].Quantity)
	})

	t.Run("Clear empties the cart", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)

		s.Clear()

		assert.Empty(t, s.Items())
		assert.True(t, s.Total().IsZero())
	})
}

func TestStore_Total(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty cart totals zero", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		assert.True(t, s.Total().Equal(decimal.Zero))
	})

	t.Run("Sum of price times quantity", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)
		s.AddItem(product(2, "Electrodo", 0.1), 3)
		s.AddItem(product(3, "Guante", 149.99), 1)

		want := decimal.RequireFromString("1150.29")
		assert.True(t, s.Total().Equal(want), "got %s", s.Total())
	})
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()

	t.Run("Rehydrate yields identical items", func(t *testing.T) {
		sm := newBolt(t)
		s := NewStore(ctx, sm, cartKey)
		catID := int64(2)
		p := product(1, "Careta", 500)
		p.CategoryID = &catID
		s.AddItem(product(3, "Guante", 150), 4)
		s.AddItem(p, 2)
		s.AddItem(product(7, "Electrodo", 12.5), 10)
		s.SetQuantity(7, 9)

		reloaded := NewStore(ctx, sm, cartKey)

		assert.Equal(t, s.Items(), reloaded.Items())
	})

	t.Run("Clear persists an empty list", func(t *testing.T) {
		sm := newBolt(t)
		s := NewStore(ctx, sm, cartKey)
		s.AddItem(product(1, "Careta", 500), 1)
		s.Clear()

		raw, err := sm.Load(ctx, cartKey)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(raw))
		assert.Empty(t, NewStore(ctx, sm, cartKey).Items())
	})

	t.Run("Malformed snapshot starts empty", func(t *testing.T) {
		sm := newBolt(t)
		require.NoError(t, sm.Save(ctx, cartKey, []byte("{not json")))

		s := NewStore(ctx, sm, cartKey)

		assert.Empty(t, s.Items())
	})

	t.Run("Snapshot lines below one are dropped", func(t *testing.T) {
		sm := newBolt(t)
		require.NoError(t, sm.Save(ctx, cartKey, []byte(`[{"id":1,"nombre":"A","precio":1,"cantidad":0},{"id":2,"nombre":"B","precio":2,"cantidad":2}]`)))

		items := NewStore(ctx, sm, cartKey).Items()

		require.Len(t, items, 1)
		assert.Equal(t, int64(2), items[0].ID)
	})

	t.Run("Storage read failure starts empty", func(t *testing.T) {
		sm := new(mocks.MockStateManager)
		sm.On("Load", ctx, cartKey).Return(nil, errors.New("disk unavailable")).Once()

		s := NewStore(ctx, sm, cartKey)

		assert.Empty(t, s.Items())
		sm.AssertExpectations(t)
	})

	t.Run("Storage write failure does not undo the mutation", func(t *testing.T) {
		sm := new(mocks.MockStateManager)
		sm.On("Load", ctx, cartKey).Return(nil, nil).Once()
		sm.On("Save", mock.Anything, cartKey, mock.Anything).Return(errors.New("disk full"))

		s := NewStore(ctx, sm, cartKey)
		s.AddItem(product(1, "Careta", 500), 2)

		require.Len(t, s.Items(), 1)
		sm.AssertNumberOfCalls(t, "Save", 1)
	})
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newBolt(t), cartKey)

	var seen [][]domain.CartItem
	unsubscribe := s.Subscribe(func(items []domain.CartItem) {
		// listeners may read the store again
		assert.Equal(t, items, s.Items())
		seen = append(seen, items)
	})

	s.AddItem(product(1, "Careta", 500), 1)
	s.AddItem(product(1, "Careta", 500), 1)
	unsubscribe()
	s.Clear()

	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0][0].Quantity)
	assert.Equal(t, 2, seen[1][0].Quantity)
}

func TestStore_Drain(t *testing.T) {
	ctx := context.Background()

	t.Run("Success empties and persists", func(t *testing.T) {
		sm := newBolt(t)
		s := NewStore(ctx, sm, cartKey)
		s.AddItem(product(1, "Careta", 500), 2)

		var got []domain.CartItem
		items, err := s.Drain(func(items []domain.CartItem) error {
			got = items
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, got, items)
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity)
		assert.Empty(t, s.Items())
		assert.Empty(t, NewStore(ctx, sm, cartKey).Items())
	})

	t.Run("Failure leaves the cart as it was", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 2)
		boom := errors.New("no contact")

		items, err := s.Drain(func([]domain.CartItem) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.Nil(t, items)
		require.Len(t, s.Items(), 1)
		assert.Equal(t, 2, s.Items()[0].Quantity)
	})

	t.Run("Listeners see the emptied cart", func(t *testing.T) {
		s := NewStore(ctx, newBolt(t), cartKey)
		s.AddItem(product(1, "Careta", 500), 1)

		var last []domain.CartItem
		calls := 0
		s.Subscribe(func(items []domain.CartItem) {
			calls++
			last = items
		})

		_, err := s.Drain(func([]domain.CartItem) error { return nil })
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Empty(t, last)
	})
}

func TestStore_SubscribeOrdering(t *testing.T) {
	s := NewStore(context.Background(), newBolt(t), cartKey)

	var (
		mu   sync.Mutex
		seen []int
	)
	s.Subscribe(func(items []domain.CartItem) {
		mu.Lock()
		defer mu.Unlock()
		if len(items) == 1 {
			seen = append(seen, items[0].Quantity)
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(product(1, "Careta", 500), 1)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.IsIncreasing(t, seen)
	assert.Equal(t, 40, seen[len(seen)-1])
}
