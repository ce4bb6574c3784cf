package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/robotctl/internal/callstore"
)

// handleListCalls returns call history, newest first.
//
// Query parameters: tool, nickname, failed (bool), limit, offset.
func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	if s.calls == nil {
		writeUnavailable(w, "call history is disabled")
		return
	}

	q := r.URL.Query()
	filter := callstore.Filter{
		Tool:     q.Get("tool"),
		Nickname: q.Get("nickname"),
	}

	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "failed must be a boolean")
			return
		}
		filter.FailedOnly = failed
	}

	var ok bool
	if filter.Limit, ok = queryInt(q.Get("limit")); !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, ok = queryInt(q.Get("offset")); !ok {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.calls.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing call history failed", "error", err)
		writeInternalError(w, "failed to list calls")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// queryInt parses an optional non-negative integer; empty means zero.
func queryInt(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
