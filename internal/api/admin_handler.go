package api

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"weldzone/storefront/internal/admin"
	"weldzone/storefront/internal/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxUploadMemory is what a product form may keep in memory before files
// spill to disk
const maxUploadMemory = 16 << 20

type AdminHandler struct {
	svc *admin.Service
}

func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	adminRoutes := router.Group("/admin")
	{
		adminRoutes.GET("/stats", h.Stats)

		adminRoutes.GET("/products", h.ListProducts)
		adminRoutes.POST("/products", h.CreateProduct)
		adminRoutes.PUT("/products/:id", h.UpdateProduct)
		adminRoutes.DELETE("/products/:id", h.DeleteProduct)

		adminRoutes.GET("/config", h.GetReference)
		adminRoutes.PUT("/config", h.SaveConfig)

		adminRoutes.GET("/categorias", h.ListCategories)
		adminRoutes.POST("/categorias", h.CreateCategory)
		adminRoutes.PUT("/categorias/:id", h.RenameCategory)
		adminRoutes.DELETE("/categorias/:id", h.DeleteCategory)

		adminRoutes.GET("/etiquetas", h.ListTags)
		adminRoutes.POST("/etiquetas", h.CreateTag)
		adminRoutes.PUT("/etiquetas/:id", h.UpdateTag)
		adminRoutes.DELETE("/etiquetas/:id", h.DeleteTag)
	}
}

type nameRequest struct {
	Name string `json:"nombre"`
}

type tagRequest struct {
	Name  string `json:"nombre"`
	Color string `json:"color"`
}

type configRequest struct {
	WhatsApp string `json:"whatsapp"`
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListProducts serves the panel list; ?refresh=true reloads it from the backend
func (h *AdminHandler) ListProducts(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	products, err := h.svc.List(c.Request.Context(), refresh)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	in, cleanup, err := bindProductInput(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer cleanup()

	res, err := h.svc.CreateProduct(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	in, cleanup, err := bindProductInput(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer cleanup()

	res, err := h.svc.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) GetReference(c *gin.Context) {
	ref, err := h.svc.LoadReference(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h *AdminHandler) SaveConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.svc.SaveConfig(c.Request.Context(), req.WhatsApp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *AdminHandler) ListCategories(c *gin.Context) {
	categories, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.svc.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) RenameCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.svc.RenameCategory(c.Request.Context(), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListTags(c *gin.Context) {
	tags, err := h.svc.Tags(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *AdminHandler) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.svc.CreateTag(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) UpdateTag(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var patch domain.TagPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.svc.UpdateTag(c.Request.Context(), id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) DeleteTag(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.DeleteTag(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

// bindProductInput reads a product form. JSON bodies carry only the fields;
// multipart bodies carry the fields as JSON in "product" plus optional
// "image" and "spec" files.
func bindProductInput(c *gin.Context) (admin.ProductInput, func(), error) {
	var in admin.ProductInput
	noop := func() {}

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&in.Draft); err != nil {
			return in, noop, err
		}
		return in, noop, nil
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		return in, noop, fmt.Errorf("invalid form: %w", err)
	}
	if err := json.Unmarshal([]byte(c.PostForm("product")), &in.Draft); err != nil {
		return in, noop, fmt.Errorf("invalid product field: %w", err)
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			if err := f.Close(); err != nil {
				log.Debugf("Failed to close upload: %v", err)
			}
		}
	}

	for field, dst := range map[string]**admin.File{"image": &in.Image, "spec": &in.Spec} {
		header, err := c.FormFile(field)
		if err != nil {
			continue // optional
		}
		f, err := header.Open()
		if err != nil {
			cleanup()
			return in, noop, fmt.Errorf("failed to open %s: %w", field, err)
		}
		opened = append(opened, f)
		*dst = &admin.File{Name: header.Filename, Body: f}
	}

	return in, cleanup, nil
}
