package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/receipt-ocr/internal/correction"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// maxCorrectionSize bounds a correction submission, OCR text included
const maxCorrectionSize = int64(1 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an error body of the form {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// contentTypeFor prefers the part's declared type and falls back to the file extension
func contentTypeFor(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleScanReceipt runs an uploaded receipt through the pipeline
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		jsonError(w, "The uploaded file is empty", http.StatusBadRequest)
		return
	}

	result := s.service.Scan(r.Context(), RawDocument{
		Data:        data,
		Path:        header.Filename,
		ContentType: contentTypeFor(header.Header.Get("Content-Type"), header.Filename),
	})

	writeJSON(w, http.StatusOK, result)
}

type correctionResponse struct {
	Recorded        bool              `json:"recorded"`
	CorrectedFields correction.Fields `json:"correctedFields"`
}

// handleSubmitCorrection accepts a submitted expense and records any corrections
func (s *Server) handleSubmitCorrection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCorrectionSize)
	var req CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "Request body is too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp := correctionResponse{}
	if record := s.service.SubmitCorrection(r.Context(), req); record != nil {
		resp.Recorded = true
		resp.CorrectedFields = record.CorrectedFields
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// handleListCorrections returns the locally stored corrections
func (s *Server) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListCorrections()
	if errors.Is(err, ErrNoStore) {
		jsonError(w, "Corrections are not stored locally", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error listing corrections", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if records == nil {
		records = []*correction.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
