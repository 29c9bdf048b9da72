package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aalr/app"
	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/robust"
	"aalr/domain/series"
	apperrors "aalr/internal/errors"
	"aalr/ports"
)

// fitPayload is the POST /api/fit request body. Samples come inline (x, y)
// or from a server-side file location; omitted tuning fields fall back to the
// configured defaults.
type fitPayload struct {
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Location string    `json:"location"`

	InteriorKnots        []float64 `json:"interior_knots"`
	KnotCount            int       `json:"knot_count"`
	Degree               int       `json:"degree"`
	MaxIterations        int       `json:"max_iterations"`
	ConvergenceTolerance int       `json:"convergence_tolerance"`
	LowerMultiple        *float64  `json:"lower_multiple"`
	UpperMultiple        *float64  `json:"upper_multiple"`
	Dispersion           string    `json:"dispersion"`

	Ensemble        bool    `json:"ensemble"`
	Duplicates      int     `json:"duplicates"`
	ProximityFactor float64 `json:"proximity_factor"`

	Persist bool `json:"persist"`
}

// fitResponse is the POST /api/fit response body
type fitResponse struct {
	Artifact   curve.RunArtifact `json:"artifact"`
	Message    string            `json:"message"`
	Residuals  []float64         `json:"residuals"`
	Persisted  bool              `json:"persisted"`
	Members    int               `json:"ensemble_members,omitempty"`
	CuredKnots []float64         `json:"cured_knots,omitempty"`
	RuntimeMs  int64             `json:"runtime_ms"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	var payload fitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, apperrors.InvalidInput("request body is not valid JSON"))
		return
	}

	req, err := s.buildFitRequest(payload)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := s.fits.Fit(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := fitResponse{
		Artifact:  result.Artifact,
		Message:   result.Outcome.Message,
		Residuals: result.Outcome.Residuals,
		Persisted: result.Persisted,
		RuntimeMs: result.RuntimeMs,
	}
	if result.Ensemble != nil {
		resp.Members = result.Ensemble.Members
		resp.CuredKnots = result.Ensemble.CuredKnots
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, apperrors.InvalidInput("run id is required"))
		return
	}

	artifact, err := s.fits.GetRun(r.Context(), runID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters, err := parseRunFilters(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	runs, err := s.fits.ListRuns(r.Context(), filters)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// buildFitRequest overlays payload fields onto the configured defaults
func (s *Server) buildFitRequest(payload fitPayload) (app.FitRequest, error) {
	req := app.FitRequest{Location: payload.Location, Persist: payload.Persist}

	if len(payload.X) > 0 || len(payload.Y) > 0 {
		src, err := series.New(payload.X, payload.Y)
		if err != nil {
			return app.FitRequest{}, err
		}
		req.Series = src
	}

	opts := s.refineDefaults
	if payload.InteriorKnots != nil {
		opts.Knots = curve.ExplicitKnots(payload.InteriorKnots)
	} else if payload.KnotCount > 0 {
		opts.Knots = curve.KnotSpec{Count: payload.KnotCount}
	}
	if payload.Degree > 0 {
		opts.Degree = payload.Degree
	}
	if payload.MaxIterations > 0 {
		opts.MaxIterations = payload.MaxIterations
	}
	if payload.ConvergenceTolerance > 0 {
		opts.ConvergenceTolerance = payload.ConvergenceTolerance
	}
	if payload.Dispersion != "" {
		disp, err := robust.DispersionByName(payload.Dispersion)
		if err != nil {
			return app.FitRequest{}, err
		}
		opts.Policy.Dispersion = disp
	}
	if payload.LowerMultiple != nil || payload.UpperMultiple != nil {
		band := robust.AsymmetricBand{Lower: robust.DefaultLowerMultiple, Upper: robust.DefaultUpperMultiple}
		if current, ok := opts.Policy.Band.(robust.AsymmetricBand); ok {
			band = current
		}
		if payload.LowerMultiple != nil {
			band.Lower = *payload.LowerMultiple
		}
		if payload.UpperMultiple != nil {
			band.Upper = *payload.UpperMultiple
		}
		opts.Policy.Band = band
	}
	req.Refine = opts

	if payload.Ensemble {
		eopts := s.ensembleDefaults
		if payload.Duplicates > 0 {
			eopts.Duplicates = payload.Duplicates
		}
		if payload.ProximityFactor > 0 {
			eopts.ProximityFactor = payload.ProximityFactor
		}
		req.Ensemble = &eopts
	}

	return req, nil
}

func parseRunFilters(r *http.Request) (ports.RunFilters, error) {
	var filters ports.RunFilters
	q := r.URL.Query()

	if v := q.Get("converged"); v != "" {
		converged, err := strconv.ParseBool(v)
		if err != nil {
			return ports.RunFilters{}, apperrors.InvalidInput("converged must be true or false")
		}
		filters.Converged = &converged
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return ports.RunFilters{}, apperrors.InvalidInput("limit must be a non-negative integer")
		}
		filters.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return ports.RunFilters{}, apperrors.InvalidInput("offset must be a non-negative integer")
		}
		filters.Offset = offset
	}
	return filters, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	appErr := apperrors.FromDomain(err)
	status := statusForCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed: %v", err)
	}
	s.respondJSON(w, status, map[string]string{
		"error": appErr.Error(),
		"code":  appErr.Code,
	})
}

func statusForCode(code string) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeReadError:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeFitFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
