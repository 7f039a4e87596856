// Package api exposes a session over JSON HTTP for a browser dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/history"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/session"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
)

const (
	defaultMaxTraceBytes = 32 << 20
	maxMetadataBytes     = 64 << 10
	sourceHeader         = "X-Trace-Source"
)

type Handler struct {
	session       *session.Session
	recorder      history.Recorder
	log           logger.Logger
	maxTraceBytes int64
}

type HandlerOption func(*Handler)

// WithMaxTraceBytes limits the size of an uploaded trace
func WithMaxTraceBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxTraceBytes = n
	}
}

func NewHandler(s *session.Session, r history.Recorder, log logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{session: s, recorder: r, log: log, maxTraceBytes: defaultMaxTraceBytes}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadSeries(w http.ResponseWriter, r *http.Request) {
	source := r.Header.Get(sourceHeader)
	if source == "" {
		source = r.URL.Query().Get("source")
	}

	a, err := h.session.LoadReader(r.Context(), source, http.MaxBytesReader(w, r.Body, h.maxTraceBytes))
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) getSeries(w http.ResponseWriter, _ *http.Request) {
	series := h.session.Series()
	if series == nil {
		series = waveform.Series{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": series})
}

func (h *Handler) getFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Summary())
}

func (h *Handler) getMetadata(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Metadata())
}

func (h *Handler) putMetadata(w http.ResponseWriter, r *http.Request) {
	var m metadata.Metadata

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMetadataBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}

	m, err := h.session.SetMetadata(r.Context(), m)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) getAnalysis(w http.ResponseWriter, _ *http.Request) {
	a, ok := h.session.Current()
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New().New(session.ErrNoSeries))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	record, err := h.session.Predict(r.Context())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil || !h.recorder.Enabled() {
		h.writeError(w, http.StatusNotFound, errors.New().New(history.ErrDisabled))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, errors.New().WithData(errors.ErrInvalidArgument, raw))
			return
		}
		limit = n
	}

	analyses, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if analyses == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	writeJSON(w, http.StatusOK, analyses)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.HasCode(err, waveform.ErrReadFailed):
		return http.StatusBadRequest
	case errors.HasCode(err, prediction.ErrBusy),
		errors.HasCode(err, session.ErrStaleSeries):
		return http.StatusConflict
	case errors.HasCode(err, session.ErrNoSeries):
		return http.StatusPreconditionFailed
	case errors.HasCode(err, waveform.ErrMalformedLine):
		return http.StatusUnprocessableEntity
	case errors.HasCode(err, metadata.ErrInvalidOperation),
		errors.HasCode(err, metadata.ErrInvalidTestDate),
		errors.HasCode(err, metadata.ErrInvalidField):
		return http.StatusBadRequest
	case errors.HasCode(err, history.ErrDisabled):
		return http.StatusNotFound
	case errors.HasCode(err, prediction.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}

	var appErr errors.Error
	if errors.As(err, &appErr) {
		resp.Code = string(appErr.Code())
		if report, ok := appErr.GetData().(waveform.Report); ok {
			resp.Data = report
		}
		if status >= http.StatusInternalServerError {
			h.log.ErrorWithCode(appErr).Msg("Request failed")
		}
	} else if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
