package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brookman/respeaker-go/internal/device"
	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/protocol"
)

// paramResponse is the JSON shape of one parameter.
type paramResponse struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Access      string   `json:"access"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	Value       string   `json:"value"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
}

// setParamRequest is the body for PUT /params/{name}. The value arrives
// as text and is parsed into the parameter's own domain.
type setParamRequest struct {
	Value string `json:"value"`
}

// toParamResponse flattens a kind, its definition and a value into the
// wire shape.
func toParamResponse(k param.Kind, v param.Value) paramResponse {
	def := k.Definition()
	return paramResponse{
		Name:        k.String(),
		Type:        def.Type.String(),
		Access:      def.Access.String(),
		Min:         def.Min,
		Max:         def.Max,
		Value:       v.String(),
		Description: def.Description,
		Labels:      def.ChoiceLabels,
	}
}

// handleListParams reads every parameter from the device and returns
// them in display order.
func (s *Server) handleListParams(w http.ResponseWriter, _ *http.Request) {
	rows, err := s.dev.List()
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}

	out := make([]paramResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toParamResponse(row.Kind, row.Value))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"params": out,
		"count":  len(out),
	})
}

// handleGetParam reads a single parameter from the device.
func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	k, err := param.KindFromString(chi.URLParam(r, "name"))
	if err != nil {
		writeNotFound(w, err.Error())
		return
	}

	v, err := s.dev.Read(k)
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParamResponse(k, v))
}

// handleSetParam parses and validates the request body, then queues the
// value in the shared cache. The reconciliation loop pushes it to the
// device on its next tick, the same path shell edits take.
func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	k, err := param.KindFromString(chi.URLParam(r, "name"))
	if err != nil {
		writeNotFound(w, err.Error())
		return
	}

	var req setParamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	v, err := param.Parse(k, req.Value)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := protocol.ValidateWrite(k, v); err != nil {
		s.writeDeviceError(w, err)
		return
	}

	s.cache.Set(k, v)
	if s.hub != nil {
		s.hub.BroadcastParamUpdate(k, v)
	}
	writeJSON(w, http.StatusOK, toParamResponse(k, v))
}

// handleReset reboots the array. The call blocks through the settle
// window, so a success response means the device is reachable again.
func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.dev.Reset(); err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset complete"})
}

// writeDeviceError maps session and protocol errors onto HTTP statuses.
// Validation failures are the caller's fault; reset races are conflicts;
// anything else is a transport fault.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, protocol.ErrReadOnly):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, protocol.ErrTypeMismatch), errors.Is(err, protocol.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrResetInFlight):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, device.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		s.logger.Error("device operation failed", "error", err)
		writeInternalError(w, "device operation failed")
	}
}
