package rest

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON envelope used by all API error responses.
type ErrorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	NeedsReauth bool   `json:"needsReauth,omitempty"`
}

// WriteError writes an ErrorResponse with the given status code.
func WriteError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("failed to encode error response: %v", err)
	}
}

// FrontendHandler serves the static frontend build, falling back to the index
// page for client-side routes.
type FrontendHandler struct {
	root  string
	index string
}

func NewFrontendHandler(root, index string) *FrontendHandler {
	return &FrontendHandler{root: root, index: index}
}

func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.root, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err != nil || info.IsDir() || strings.HasPrefix(r.URL.Path, "/api/") {
		http.ServeFile(w, r, filepath.Join(h.root, h.index))
		return
	}
	http.ServeFile(w, r, path)
}
