package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/scenario"
)

// ClassSummary describes a playable class.
type ClassSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Health      int      `json:"health"`
	Foci        []string `json:"foci"`
}

type CatalogHandler struct {
	log     *slog.Logger
	catalog *scenario.Catalog
}

func NewCatalogHandler(log *slog.Logger, catalog *scenario.Catalog) *CatalogHandler {
	return &CatalogHandler{
		log:     log,
		catalog: catalog,
	}
}

// ServeHTTP lists the classes a new game can start with.
// GET /v1/classes
func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	out := make([]ClassSummary, 0, len(h.catalog.Classes))
	for _, c := range h.catalog.Classes {
		foci := make([]string, 0, len(c.Foci))
		for _, fn := range actor.FocusOrder {
			if _, ok := c.Foci[string(fn)]; ok {
				foci = append(foci, string(fn))
			}
		}
		out = append(out, ClassSummary{
			Name:        c.Name,
			Description: c.Description,
			Health:      c.Health,
			Foci:        foci,
		})
	}
	writeJSON(w, h.log, http.StatusOK, out)
}
