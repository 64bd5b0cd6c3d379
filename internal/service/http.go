package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.klb.dev/keepclip/internal/hub"
	"go.klb.dev/keepclip/internal/message"
	"go.klb.dev/keepclip/internal/settings"
)

// settingsPatch is the PUT /v1/settings body. Absent fields are left alone.
type settingsPatch struct {
	Capacity  *json.Number `json:"capacity"`
	Autostart *bool        `json:"autostart"`
}

// Handler returns the HTTP API:
//
//	GET    /v1/history
//	DELETE /v1/history
//	DELETE /v1/history/{ref}
//	POST   /v1/history/{ref}/select
//	GET    /v1/settings
//	PUT    /v1/settings
//	GET    /v1/status
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/history", s.handleList)
	mux.HandleFunc("DELETE /v1/history", s.handleClear)
	mux.HandleFunc("DELETE /v1/history/{ref}", s.handleDelete)
	mux.HandleFunc("POST /v1/history/{ref}/select", s.handleSelect)
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handlePutSettings)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	return mux
}

func (s *Service) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, message.FromEntries(s.h.Snapshot()))
}

func (s *Service) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.h.Clear(ctx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	e, err := s.h.Remove(ctx, r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.FromEntry(e, 0))
}

func (s *Service) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	e, err := s.h.Select(ctx, r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.FromEntry(e, s.position(e)))
}

func (s *Service) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings().Settings)
}

func (s *Service) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var patch settingsPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid settings body: " + err.Error()})
		return
	}

	// Validate everything before changing anything.
	var capacity *int
	if patch.Capacity != nil {
		n, err := settings.ParseCapacity(patch.Capacity.String())
		if err != nil {
			writeError(w, err)
			return
		}
		capacity = &n
	}
	if capacity != nil {
		if _, err := s.h.SetCapacity(ctx, *capacity); err != nil {
			writeError(w, err)
			return
		}
	}
	if patch.Autostart != nil {
		if err := s.h.SetAutostart(ctx, *patch.Autostart); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.settings().Settings)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, hub.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, settings.ErrInvalidCapacity):
		code = http.StatusBadRequest
	case errors.Is(err, hub.ErrStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http: write response failed", "err", err)
	}
}
