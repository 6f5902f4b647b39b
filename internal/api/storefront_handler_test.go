package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"weldzone/storefront/internal/cart"
	"weldzone/storefront/internal/catalog"
	"weldzone/storefront/internal/client/mocks"
	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/order"
	"weldzone/storefront/internal/siteconfig"
	"weldzone/storefront/internal/state"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedContacts struct{ phone string }

func (f fixedContacts) Get() siteconfig.Snapshot {
	return siteconfig.Snapshot{Config: &domain.SiteConfig{WhatsApp: f.phone}, State: siteconfig.StateValidated}
}

func catID(id int64) *int64 { return &id }

type storefrontFixture struct {
	router  *gin.Engine
	backend *mocks.MockBackend
	cart    *cart.Store
}

func newStorefrontFixture(t *testing.T, phone string) *storefrontFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := new(mocks.MockBackend)
	backend.On("ListProducts", mock.Anything).Return([]domain.Product{
		{ID: 1, Name: "Careta", Description: "Oscurecimiento automático", Price: 500, CategoryID: catID(1)},
		{ID: 2, Name: "Electrodo 6013", Price: 12.5, CategoryID: catID(4)},
	}, nil).Maybe()
	backend.On("ListCategories", mock.Anything).Return([]domain.Category{
		{ID: 1, Name: "Protección"},
		{ID: 2, Name: "Plasma"},
		{ID: 4, Name: "Consumibles"},
	}, nil).Maybe()

	sm, err := state.NewBoltStateManager(filepath.Join(t.TempDir(), "api.db"), "storefront")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Close() })

	store := cart.NewStore(context.Background(), sm, "weldzone_cart")
	formatter, err := order.NewPriceFormatter("es-MX")
	require.NoError(t, err)
	contacts := fixedContacts{phone: phone}
	checkout := order.NewCheckout(store, contacts, order.Template{StoreName: "WeldZone", Currency: "MXN"}, formatter, "https://api.whatsapp.com/send")

	h := NewStorefrontHandler(catalog.NewCatalog(backend, time.Minute), store, checkout, contacts)
	return &storefrontFixture{router: NewRouter("", h), backend: backend, cart: store}
}

func (f *storefrontFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type cartBody struct {
	Items []domain.CartItem `json:"items"`
	Total string            `json:"total"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var body cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStorefrontHandler_Catalog(t *testing.T) {
	f := newStorefrontFixture(t, "521234567890")

	t.Run("Filters by term and lists categories with products", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/catalog?q=careta", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page catalog.Page
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Careta", page.Products[0].Name)
		require.Len(t, page.Categories, 1)
		assert.Equal(t, "Protección", page.Categories[0].Name)
	})

	t.Run("Empty category gives an empty list", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/catalog?categoria=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page catalog.Page
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Empty(t, page.Products)
		assert.Equal(t, 0, page.Total)
	})

	t.Run("Bad category id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/catalog?categoria=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStorefrontHandler_Cart(t *testing.T) {
	t.Run("Add defaults to one and accumulates", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")

		w := f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1})
		require.Equal(t, http.StatusOK, w.Code)
		w = f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1, "cantidad": 3})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeCart(t, w)
		require.Len(t, body.Items, 1)
		assert.Equal(t, 4, body.Items[0].Quantity)
		assert.Equal(t, "2000", body.Total)
	})

	t.Run("Unknown product is 404", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")

		w := f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 99})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing product id is 400", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")

		w := f.do(t, http.MethodPost, "/api/cart/items", gin.H{"cantidad": 2})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Quantity zero removes", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")
		f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1})
		f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 2, "cantidad": 2})

		w := f.do(t, http.MethodPut, "/api/cart/items/1", gin.H{"cantidad": 0})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeCart(t, w)
		require.Len(t, body.Items, 1)
		assert.Equal(t, int64(2), body.Items[0].ID)
		assert.Equal(t, "25", body.Total)
	})

	t.Run("Remove and clear", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")
		f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1})
		f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 2})

		w := f.do(t, http.MethodDelete, "/api/cart/items/2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeCart(t, w).Items, 1)

		w = f.do(t, http.MethodDelete, "/api/cart", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeCart(t, w)
		assert.NotNil(t, body.Items)
		assert.Empty(t, body.Items)
		assert.Equal(t, "0", body.Total)
	})
}

func TestStorefrontHandler_CartCount(t *testing.T) {
	f := newStorefrontFixture(t, "521234567890")
	count := func() int {
		w := f.do(t, http.MethodGet, "/api/cart/count", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Count
	}

	assert.Equal(t, 0, count())

	f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1, "cantidad": 3})
	f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 2})
	assert.Equal(t, 2, count())

	f.do(t, http.MethodPost, "/api/checkout", nil)
	assert.Equal(t, 0, count())
}

func TestStorefrontHandler_Checkout(t *testing.T) {
	t.Run("Empty cart is refused", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")

		w := f.do(t, http.MethodPost, "/api/checkout", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Missing contact is refused and keeps the cart", func(t *testing.T) {
		f := newStorefrontFixture(t, "")
		f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1, "cantidad": 2})

		w := f.do(t, http.MethodPost, "/api/checkout", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Len(t, f.cart.Items(), 1)
	})

	t.Run("Returns the link and empties the cart", func(t *testing.T) {
		f := newStorefrontFixture(t, "521234567890")
		f.do(t, http.MethodPost, "/api/cart/items", gin.H{"productId": 1, "cantidad": 2})

		w := f.do(t, http.MethodPost, "/api/checkout", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res struct {
			Link    string `json:"link"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Contains(t, res.Link, "https://api.whatsapp.com/send?phone=521234567890&text=")
		assert.Contains(t, res.Message, "🧰 *1. CARETA*")
		assert.Empty(t, f.cart.Items())
	})
}

func TestStorefrontHandler_Config(t *testing.T) {
	f := newStorefrontFixture(t, " 521234567890 ")

	w := f.do(t, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"whatsapp":"521234567890","state":"validated","loading":false}`, w.Body.String())
}
