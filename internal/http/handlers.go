package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"voxguardian/internal/app"
	"voxguardian/internal/models"
	"voxguardian/internal/service/analysis"
	"voxguardian/internal/service/audio"
	"voxguardian/internal/store"
)

// speakerID labels every caller until speaker diarization exists.
const speakerID = "Caller-001"

type handlers struct {
	app *app.Application
}

func (h *handlers) readiness(w http.ResponseWriter, r *http.Request) {
	results, ok := h.app.Ready(r.Context())
	status := http.StatusOK
	body := map[string]any{"status": "ready", "checks": results}
	if !ok {
		status = http.StatusServiceUnavailable
		body["status"] = "not ready"
	}
	writeJSON(w, status, body)
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	limits := h.app.Intake.Limits()
	tooLarge := "File too large (max " + sizeLabel(limits.MaxBytes) + ")"

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.app.Metrics.RecordUploadRejected("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.app.Metrics.RecordUploadRejected("no_audio")
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	sf, err := h.app.Intake.Accept(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrNoAudio):
			writeError(w, http.StatusBadRequest, "No selected file")
		case errors.Is(err, audio.ErrUnsupportedExtension):
			writeError(w, http.StatusBadRequest, "Invalid file type. Allowed types: "+strings.Join(limits.AllowedExtensions, ", "))
		case errors.Is(err, audio.ErrUnsupportedMIME):
			writeError(w, http.StatusBadRequest, "Invalid MIME type")
		case errors.Is(err, audio.ErrInvalidFilename):
			writeError(w, http.StatusBadRequest, "Invalid filename")
		case errors.Is(err, audio.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, tooLarge)
		default:
			log.Error().Err(err).Msg("Failed to store upload")
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	res, err := h.app.Analyzer.Analyze(r.Context(), sf)
	if err != nil {
		if rmErr := h.app.Intake.Remove(sf); rmErr != nil {
			log.Warn().Err(rmErr).Str("audioFile", sf.Name).Msg("Failed to remove upload")
		}
		writeError(w, http.StatusInternalServerError, analysisMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, models.AnalyzeResponse{
		CallID:            res.CallID,
		Transcript:        res.Transcript,
		ConfidenceScore:   res.Score.ConfidenceScore,
		EmergencyDetected: res.Score.EmergencyDetected,
	})
}

func sizeLabel(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func analysisMessage(err error) string {
	for _, e := range []error{
		analysis.ErrTranscode,
		analysis.ErrDuration,
		analysis.ErrTranscribe,
		analysis.ErrInvalid,
		analysis.ErrPersist,
	} {
		if errors.Is(err, e) {
			return strings.ToUpper(e.Error()[:1]) + e.Error()[1:]
		}
	}
	return "Internal server error"
}

func (h *handlers) score(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.app.Validator.ValidateScoreRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	score := h.app.Engine.ScoreCall(req.Transcript, *req.CompressionRatio, *req.DurationSeconds)
	h.app.Metrics.RecordScore(score.ConfidenceScore, score.EmergencyDetected,
		score.Signals.RepetitionPenalty < 0, score.Signals.SilencePenalty < 0)
	writeJSON(w, http.StatusOK, score)
}

func (h *handlers) classify(w http.ResponseWriter, r *http.Request) {
	var req models.ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.app.Engine.QuickClassify(req.Transcript)
	h.app.Metrics.RecordQuickClassification(result.EmergencyDetected)
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) recentCalls(w http.ResponseWriter, r *http.Request) {
	limit := h.app.Cfg.Database.RecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit || limit <= 0 {
			limit = n
		}
	}

	calls, err := h.app.Store.Recent(r.Context(), limit)
	h.app.Metrics.RecordStoreOperation("recent", err)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list recent calls")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]models.RecentCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, h.recentCall(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) recentCall(c store.Call) models.RecentCall {
	rc := models.RecentCall{
		ID:              c.ID,
		CallID:          c.CallID,
		Transcript:      c.Transcript,
		ConfidenceScore: c.ConfidenceScore,
		CreatedDate:     c.CreatedAt.UTC().Format(time.RFC3339),
		SpeakerID:       speakerID,
		DominantEmotion: h.app.Engine.QuickClassify(c.Transcript).EmotionTone,
		IsSuspicious:    c.EmergencyDetected,
	}
	if c.AudioFileName != "" {
		u := path.Join("/audio", c.AudioFileName)
		rc.AudioFileURL = &u
	}
	return rc
}

func (h *handlers) audioFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	f, err := h.app.Intake.Open(name)
	if err != nil {
		if errors.Is(err, audio.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Error().Err(err).Str("audioFile", name).Msg("Failed to open audio file")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
