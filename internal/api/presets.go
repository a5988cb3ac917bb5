package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/preset"
)

// presetResponse is the JSON shape of one preset. Values are keyed by
// parameter name with the value in its text form.
type presetResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Values      map[string]string `json:"values"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// createPresetRequest is the body for POST /presets. The value set is
// captured from the device at request time, not supplied by the caller.
type createPresetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toPresetResponse(p *preset.Preset) presetResponse {
	values := make(map[string]string, len(p.Values))
	for k, v := range p.Values {
		values[k.String()] = v.String()
	}
	return presetResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Values:      values,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// requirePresets returns the repository, or writes a 503 and returns nil
// when preset storage is not configured.
func (s *Server) requirePresets(w http.ResponseWriter) preset.Repository {
	if s.presets == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "preset storage is not configured")
		return nil
	}
	return s.presets
}

// handleListPresets returns all saved presets ordered by name.
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	repo := s.requirePresets(w)
	if repo == nil {
		return
	}

	presets, err := repo.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list presets", "error", err)
		writeInternalError(w, "failed to list presets")
		return
	}

	out := make([]presetResponse, 0, len(presets))
	for _, p := range presets {
		out = append(out, toPresetResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"presets": out,
		"count":   len(out),
	})
}

// handleCreatePreset captures the device's current writable parameters
// under the given name.
func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	repo := s.requirePresets(w)
	if repo == nil {
		return
	}

	var req createPresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	rows, err := s.dev.List()
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	snapshot := make(map[param.Kind]param.Value, len(rows))
	for _, row := range rows {
		snapshot[row.Kind] = row.Value
	}

	p := &preset.Preset{
		Name:        req.Name,
		Description: req.Description,
		Values:      preset.Capture(snapshot),
	}
	if err := repo.Save(r.Context(), p); err != nil {
		if errors.Is(err, preset.ErrDuplicateName) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("failed to save preset", "name", req.Name, "error", err)
		writeInternalError(w, "failed to save preset")
		return
	}

	s.logger.Info("preset captured", "id", p.ID, "name", p.Name, "params", len(p.Values))
	writeJSON(w, http.StatusCreated, toPresetResponse(p))
}

// handleGetPreset returns one preset by ID.
func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	repo := s.requirePresets(w)
	if repo == nil {
		return
	}

	p, err := repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			writeNotFound(w, err.Error())
			return
		}
		s.logger.Error("failed to load preset", "error", err)
		writeInternalError(w, "failed to load preset")
		return
	}
	writeJSON(w, http.StatusOK, toPresetResponse(p))
}

// handleDeletePreset removes one preset by ID.
func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	repo := s.requirePresets(w)
	if repo == nil {
		return
	}

	if err := repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			writeNotFound(w, err.Error())
			return
		}
		s.logger.Error("failed to delete preset", "error", err)
		writeInternalError(w, "failed to delete preset")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleApplyPreset writes every value in the preset to the device.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	repo := s.requirePresets(w)
	if repo == nil {
		return
	}

	p, err := repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			writeNotFound(w, err.Error())
			return
		}
		s.logger.Error("failed to load preset", "error", err)
		writeInternalError(w, "failed to load preset")
		return
	}

	if err := p.Apply(s.dev); err != nil {
		s.writeDeviceError(w, err)
		return
	}

	// The values just went to the device through the session, bypassing
	// the reconciliation loop. Tell the loop so its next write-back pass
	// does not send them again.
	if s.adopter != nil {
		for k, v := range p.Values {
			s.adopter.Adopt(k, v)
		}
	}

	s.logger.Info("preset applied", "id", p.ID, "name", p.Name, "params", len(p.Values))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "applied",
		"name":    p.Name,
		"applied": len(p.Values),
	})
}
