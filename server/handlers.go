package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/render"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stim"
	"github.com/katalvlaran/pulsetrain/stimerr"
	"github.com/katalvlaran/pulsetrain/store"
)

// maxBodyBytes bounds POST bodies (modulator curves included).
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PlatformInfo is the public view of a platform descriptor.
type PlatformInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	StepUs      float64          `json:"step_us"`
	BufferSteps int              `json:"buffer_steps"`
	Ranges      []float64        `json:"ranges"`
	Unit        string           `json:"unit"`
	MinGapUs    float64          `json:"min_gap_us"`
	Electrodes  int              `json:"electrodes"`
	Topologies  []shape.Topology `json:"topologies"`
}

// FitRequest is the body of POST /v1/fit.
type FitRequest struct {
	Platform string       `json:"platform"`
	Seed     int64        `json:"seed,omitempty"`
	Request  stim.Request `json:"request"`
}

// FitResponse is the answer of POST /v1/fit.
type FitResponse struct {
	Snapshot map[string]any  `json:"snapshot"`
	Sequence render.Document `json:"sequence"`
	Stored   bool            `json:"stored"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	all := platform.All()
	out := make([]PlatformInfo, len(all))
	for i, p := range all {
		out[i] = PlatformInfo{
			Name:        p.Name,
			Description: p.Description,
			StepUs:      p.StepUs,
			BufferSteps: p.BufferSteps,
			Ranges:      p.Ranges,
			Unit:        p.Unit,
			MinGapUs:    p.MinGapUs,
			Electrodes:  p.Electrodes,
			Topologies:  p.Topologies,
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	var body FitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	p, err := platform.Lookup(body.Platform)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := stim.Derive(p, body.Request, stim.WithSeed(body.Seed), stim.WithLogger(s.logger))
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	resp := FitResponse{
		Snapshot: snap.Struct(),
		Sequence: render.NewDocument(snap.Sequence(), p),
	}
	if s.store != nil {
		if _, err := s.store.Save(r.Context(), snap); err != nil {
			s.logger.Error("failed to save snapshot", slog.Any("error", err))
			s.writeError(w, http.StatusInternalServerError, "storage error")
			return
		}
		resp.Stored = true
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := s.store.List(r.Context(), r.URL.Query().Get("platform"), limit)
	if err != nil {
		s.logger.Error("failed to list snapshots", slog.Any("error", err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load snapshot", slog.Any("error", err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch stimerr.Class(err) {
	case stimerr.ErrValidation, stimerr.ErrAchievability, stimerr.ErrBufferOverflow:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}
