package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"fieldsync/internal/fields"
	"fieldsync/internal/updatefield"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.world.Stats())
}

func (h *routerHandlers) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.world.Entities())
}

// schemaSummary counts how many bits of a schema each relationship unlocks.
type schemaSummary struct {
	Name    string         `json:"name"`
	Bits    int            `json:"bits"`
	Public  int            `json:"public"`
	ByFlag  map[string]int `json:"byFlag"`
	Gates   int            `json:"gates"`
	Details []bitDetail    `json:"details,omitempty"`
}

type bitDetail struct {
	Bit      int    `json:"bit"`
	Gate     bool   `json:"gate,omitempty"`
	Required string `json:"required"`
}

var flagNames = []struct {
	flag updatefield.Visibility
	name string
}{
	{updatefield.VisibleOwner, "owner"},
	{updatefield.VisiblePartyMember, "party"},
	{updatefield.VisibleUnitAll, "unitAll"},
	{updatefield.VisibleEmpathy, "empathy"},
}

func visibilityName(v updatefield.Visibility) string {
	if v == updatefield.VisibleAll {
		return "all"
	}
	var parts []string
	for _, f := range flagNames {
		if v.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

func summarize(s *updatefield.Schema, details bool) schemaSummary {
	sum := schemaSummary{
		Name:   s.Name(),
		Bits:   s.Bits(),
		Public: s.DefaultMask().Count(),
		ByFlag: make(map[string]int, len(flagNames)),
	}
	for _, f := range flagNames {
		sum.ByFlag[f.name] = s.FlagMask(f.flag).Count()
	}
	for bit := 0; bit < s.Bits(); bit++ {
		if s.IsGate(bit) {
			sum.Gates++
		}
		if details {
			sum.Details = append(sum.Details, bitDetail{
				Bit:      bit,
				Gate:     s.IsGate(bit),
				Required: visibilityName(s.Required(bit)),
			})
		}
	}
	return sum
}

func (h *routerHandlers) handleGetSchemas(w http.ResponseWriter, r *http.Request) {
	schemas := fields.Schemas()
	out := make([]schemaSummary, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, summarize(s, false))
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, s := range fields.Schemas() {
		if strings.EqualFold(s.Name(), name) {
			writeJSON(w, summarize(s, true))
			return
		}
	}
	writeError(w, "Unknown schema", http.StatusNotFound)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
