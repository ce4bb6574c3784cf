package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robotctl/internal/robot"
)

// handleListTools returns the tool catalogue.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := robot.Tools()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": tools,
		"count": len(tools),
	})
}

// handleInvokeTool runs one tool with the JSON object in the request body
// as its arguments. An empty body means no arguments.
//
// Any call that reaches the upstream answers 200 with the envelope, even
// when the envelope carries a failure code.
func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := robot.Lookup(name); !ok {
		writeNotFound(w, "unknown tool: "+name)
		return
	}

	args, err := decodeArguments(r.Body)
	if err != nil {
		writeBadRequest(w, "request body must be a JSON object of tool arguments")
		return
	}

	env, err := s.tools.Invoke(r.Context(), name, args)
	switch {
	case errors.Is(err, robot.ErrUnknownTool):
		writeNotFound(w, err.Error())
		return
	case errors.Is(err, robot.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	case err != nil:
		s.logger.Error("tool invocation failed", "tool", name, "error", err)
		writeInternalError(w, "tool invocation failed")
		return
	}

	subject := ""
	if claims := claimsFromContext(r.Context()); claims != nil {
		subject = claims.Subject
	}
	s.logger.Info("tool invoked",
		"tool", name,
		"subject", subject,
		"code", env.Code,
		"request_id", requestID(r),
	)

	writeJSON(w, http.StatusOK, env)
}

// decodeArguments reads exactly one JSON object, or nothing. Trailing data
// after the object is rejected.
func decodeArguments(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return args, nil
}
