package shell

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/imagefmt"
)

// maxUploadSize bounds picked uploads; phone photos can be large
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleGetSession returns the current session state
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scanner.Snapshot())
}

// handleReset starts a new session
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.scanner.Reset(r.Context())
	if err != nil {
		slog.Error("Error resetting session", "error", err)
		corsError(w, "Scanner unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleUpload submits an uploaded image as an on-demand pick
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
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

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = imagefmt.ContentTypeFromFilename(header.Filename)
	}

	s.pick(w, r, capture.Image{
		Data:        data,
		ContentType: imagefmt.NormalizeContentType(contentType),
		Fidelity:    capture.FidelityFull,
		Origin:      header.Filename,
	})
}

// handleListGallery returns the names of pickable gallery images
func (s *Server) handleListGallery(w http.ResponseWriter, r *http.Request) {
	if s.gallery == nil {
		corsError(w, "Gallery not configured", http.StatusNotFound)
		return
	}

	names, err := s.gallery.List()
	if err != nil {
		slog.Error("Error listing gallery", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// handlePickGallery submits a gallery image as an on-demand pick
func (s *Server) handlePickGallery(w http.ResponseWriter, r *http.Request) {
	if s.gallery == nil {
		corsError(w, "Gallery not configured", http.StatusNotFound)
		return
	}

	name := r.PathValue("name")
	img, err := s.gallery.Pick(name)
	if err != nil {
		if errors.Is(err, capture.ErrCancelled) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, capture.ErrInvalidName) {
			corsError(w, "Image not found", http.StatusNotFound)
			return
		}
		slog.Error("Error picking gallery image", "name", name, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.pick(w, r, img)
}

// pick hands the image to the scanner; 409 means the gate refused it
func (s *Server) pick(w http.ResponseWriter, r *http.Request, img capture.Image) {
	accepted, err := s.scanner.Pick(r.Context(), img)
	if err != nil {
		slog.Error("Error submitting pick", "origin", img.Origin, "error", err)
		jsonError(w, "Scanner unavailable", http.StatusServiceUnavailable)
		return
	}
	if !accepted {
		jsonError(w, "A scan is already in progress or an identifier was already found", http.StatusConflict)
		return
	}

	slog.Info("Accepted picked image", "origin", img.Origin, "size", len(img.Data))
	writeJSON(w, http.StatusAccepted, s.scanner.Snapshot())
}

// handleListNotices returns recent user notices, newest last
func (s *Server) handleListNotices(w http.ResponseWriter, r *http.Request) {
	notices := []Notice{}
	if s.notices != nil {
		notices = s.notices.List()
	}
	writeJSON(w, http.StatusOK, notices)
}
