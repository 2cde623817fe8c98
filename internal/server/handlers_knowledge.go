package server

import (
	"net/http"
	"strings"

	"github.com/tud-hci/ticketlab/internal/model"
)

// HandleKnowledgeTree handles GET /api/knowledge.
func (h *Handlers) HandleKnowledgeTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.knowledge.Tree())
}

type knowledgeSearchResponse struct {
	Query   string                `json:"query"`
	Results []model.KnowledgeNode `json:"results"`
}

// HandleKnowledgeSearch handles GET /api/knowledge/search. Searches are
// part of the trace when the caller identifies as a participant.
func (h *Handlers) HandleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "missing query parameter q")
		return
	}

	results := h.knowledge.Search(query)
	if results == nil {
		results = []model.KnowledgeNode{}
	}

	if pid := participantID(r); pid != "" {
		if _, ok := h.store.Get(pid); ok {
			h.recorder.Record(pid, model.KnowledgeSearchedPayload{
				Query:       query,
				ResultCount: len(results),
			})
		}
	}

	writeJSON(w, r, http.StatusOK, knowledgeSearchResponse{Query: query, Results: results})
}
