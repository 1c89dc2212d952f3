package handler

import (
	"net/http"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// AssetLister lists the tracked assets.
type AssetLister interface {
	All() []domain.AssetTarget
}

// CatalogHandler serves the asset catalog.
type CatalogHandler struct {
	assets AssetLister
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(assets AssetLister) *CatalogHandler {
	return &CatalogHandler{assets: assets}
}

type catalogEntry struct {
	domain.AssetTarget
	Pair string `json:"pair"`
}

// List returns every tracked asset with its display pair.
// GET /api/catalog
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.assets.All()
	out := make([]catalogEntry, len(all))
	for i, a := range all {
		out[i] = catalogEntry{AssetTarget: a, Pair: a.Pair()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}
