package api

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"weldzone/storefront/internal/cart"
	"weldzone/storefront/internal/catalog"
	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type StorefrontHandler struct {
	catalog  *catalog.Catalog
	cart     *cart.Store
	checkout *order.Checkout
	contacts order.ContactSource

	// number of cart lines shown on the cart button, kept by a cart listener
	badge atomic.Int64
}

func NewStorefrontHandler(cat *catalog.Catalog, store *cart.Store, checkout *order.Checkout, contacts order.ContactSource) *StorefrontHandler {
	h := &StorefrontHandler{
		catalog:  cat,
		cart:     store,
		checkout: checkout,
		contacts: contacts,
	}
	store.Subscribe(func(items []domain.CartItem) {
		h.badge.Store(int64(len(items)))
	})
	h.badge.Store(int64(len(store.Items())))
	return h
}

func (h *StorefrontHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/catalog", h.Browse)
	router.GET("/config", h.GetConfig)

	cartRoutes := router.Group("/cart")
	{
		cartRoutes.GET("", h.GetCart)
		cartRoutes.DELETE("", h.ClearCart)
		cartRoutes.POST("/items", h.AddItem)
		cartRoutes.PUT("/items/:id", h.SetQuantity)
		cartRoutes.DELETE("/items/:id", h.RemoveItem)
		cartRoutes.GET("/message", h.PreviewOrder)
		cartRoutes.GET("/count", h.CartCount)
	}

	router.POST("/checkout", h.Checkout)
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

type addItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"cantidad"`
}

type setQuantityRequest struct {
	Quantity *int `json:"cantidad" binding:"required"`
}

type configResponse struct {
	WhatsApp string `json:"whatsapp"`
	State    string `json:"state"`
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
}

func (h *StorefrontHandler) Browse(c *gin.Context) {
	q := catalog.Query{Term: c.Query("q")}
	if raw := c.Query("categoria"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, err)
			return
		}
		q.CategoryID = &id
	}

	page, err := h.catalog.Browse(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *StorefrontHandler) GetConfig(c *gin.Context) {
	snap := h.contacts.Get()
	resp := configResponse{
		WhatsApp: snap.Contact(),
		State:    string(snap.State),
		Loading:  snap.Loading,
	}
	if snap.Err != nil {
		resp.Error = "No se pudo cargar la configuración del sistema"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StorefrontHandler) GetCart(c *gin.Context) {
	h.respondCart(c, http.StatusOK)
}

func (h *StorefrontHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.catalog.Product(c.Request.Context(), req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}

	h.cart.AddItem(*product, req.Quantity)
	h.respondCart(c, http.StatusOK)
}

func (h *StorefrontHandler) SetQuantity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.cart.SetQuantity(id, *req.Quantity)
	h.respondCart(c, http.StatusOK)
}

func (h *StorefrontHandler) RemoveItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}

	h.cart.RemoveItem(id)
	h.respondCart(c, http.StatusOK)
}

func (h *StorefrontHandler) ClearCart(c *gin.Context) {
	h.cart.Clear()
	h.respondCart(c, http.StatusOK)
}

func (h *StorefrontHandler) CartCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.badge.Load()})
}

func (h *StorefrontHandler) PreviewOrder(c *gin.Context) {
	c.JSON(http.StatusOK, h.checkout.Preview())
}

func (h *StorefrontHandler) Checkout(c *gin.Context) {
	res, err := h.checkout.Place(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *StorefrontHandler) respondCart(c *gin.Context, status int) {
	items := h.cart.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	c.JSON(status, cartResponse{Items: items, Total: cart.Total(items)})
}
