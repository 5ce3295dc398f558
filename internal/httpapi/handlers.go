package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/efebarandurmaz/pramaanx/internal/complaint"
	"github.com/efebarandurmaz/pramaanx/internal/speech"
)

// TextRequest is the body of every text-taking endpoint.
type TextRequest struct {
	Text *string `json:"text"`
}

// FactResponse is returned by POST /verify-rule.
type FactResponse struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
}

// TranscriptionResponse is returned by POST /upload-audio.
type TranscriptionResponse struct {
	Transcription string `json:"transcription"`
}

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// maxTextBody caps JSON request bodies.
const maxTextBody = 1 << 20

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, StatusResponse{Status: "PramaanX Brain is Active"})
}

// handleVerify handles POST /verify-rule
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	res, err := s.svc.Verifier.Verify(r.Context(), text)
	if err != nil {
		s.logger.Error("fact check failed", "error", err)
		respondError(w, http.StatusBadGateway, "fact check unavailable")
		return
	}
	respondJSON(w, FactResponse{Fact: res.Fact, Source: res.Source})
}

// handleAnalyze handles POST /analyze-interaction
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	respondJSON(w, s.svc.Classifier.Classify(r.Context(), text))
}

// handleUpload handles POST /upload-audio with a multipart "file" part.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "audio exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	text, err := s.svc.Transcriber.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		var terr *speech.TranscriptionError
		if errors.As(err, &terr) {
			if terr.Rejected() {
				respondError(w, http.StatusUnprocessableEntity, terr.Error())
				return
			}
			s.logger.Error("transcription backend failed", "file", terr.Filename, "error", terr.Err)
			respondError(w, http.StatusBadGateway, terr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "transcription failed")
		return
	}
	respondJSON(w, TranscriptionResponse{Transcription: text})
}

// handleComplaint handles POST /generate-complaint
func (s *Server) handleComplaint(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	art, err := s.svc.Complaints.Generate(r.Context(), text)
	if err != nil {
		var gerr *complaint.GenerationError
		if errors.As(err, &gerr) {
			s.logger.Error("complaint generation failed", "path", gerr.Path, "error", gerr.Err)
		}
		respondError(w, http.StatusInternalServerError, "complaint generation failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(art.Data)
}

// handleHeatmap handles GET /heatmap-data
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.cfg.Heatmap)
}

// decodeText reads a {"text": ...} body. It writes the error response
// itself and reports whether the handler should continue.
func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req TextRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	if req.Text == nil {
		respondError(w, http.StatusUnprocessableEntity, "field \"text\" is required")
		return "", false
	}
	return *req.Text, true
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// corsMiddleware adds CORS headers for the browser frontend
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and counts them by route pattern.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if i := strings.IndexByte(route, ' '); i >= 0 {
			route = route[i+1:]
		}
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(route, rec.status, time.Since(start))
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
