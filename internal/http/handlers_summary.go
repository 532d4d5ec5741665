package http

import "net/http"

// handleSummary serves the aggregate view. It always covers the full record
// set; list filters never narrow it.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, found := s.summaryCache.Get(summaryCacheKey)
	if !found {
		var err error
		summary, err = s.store.Summary(r.Context())
		if err != nil {
			s.respondInternal(r.Context(), w, "Failed to fetch summary", err)
			return
		}
		s.summaryCache.Set(summaryCacheKey, summary)
	}

	writeJSON(w, http.StatusOK, summary)
}
