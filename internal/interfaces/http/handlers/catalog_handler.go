package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OperaLab/internal/domain/regulation"
)

// CatalogHandler serves the read-only regulatory catalog.
type CatalogHandler struct {
	catalog *regulation.Catalog
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog *regulation.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List handles GET /api/v1/regulations.  filter matches names; matrix keeps
// the regulations that apply to a sample matrix.
func (h *CatalogHandler) List(c *gin.Context) {
	names := h.catalog.Filter(c.Query("filter"))
	if matrix := c.Query("matrix"); matrix != "" {
		keep := make(map[string]bool)
		for _, n := range h.catalog.ForMatrix(matrix) {
			keep[n] = true
		}
		filtered := names[:0:0]
		for _, n := range names {
			if keep[n] {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"regulations": names, "total": len(names)})
}

// Get handles GET /api/v1/regulations/:name.
func (h *CatalogHandler) Get(c *gin.Context) {
	reg, err := h.catalog.Get(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}
