package handler

import (
	"atm-gateway/internal/adapter/http/dto"
	"atm-gateway/internal/core/ports"
	"atm-gateway/pkg/apperror"
	"atm-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler reports on the text catalog served to ATM clients.
type CatalogHandler struct {
	catalogs ports.CatalogRepository
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogs ports.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

// Version handles GET /api/v1/catalog/version.
func (h *CatalogHandler) Version(c *gin.Context) {
	col, err := h.catalogs.Load(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.ErrCatalog(err))
		return
	}
	response.OK(c, dto.CatalogVersionResponse{
		Version:   col.Version,
		Languages: col.Languages(),
	})
}
