// Package handler provides HTTP handlers for the gateway endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/inkwell-ai/ocr-gateway/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// errTooLarge reports an upload over the configured ceiling.
var errTooLarge = errors.New("uploaded file exceeds maximum size")

// readUpload extracts one multipart file field into memory, bounded by
// maxBytes.
func readUpload(r *http.Request, field string, maxBytes int64) (service.Upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return service.Upload{}, err
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return service.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return service.Upload{}, err
	}
	if int64(len(data)) > maxBytes {
		return service.Upload{}, errTooLarge
	}

	return service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}
