package api

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/dgallion1/noticegest/internal/notice"
)

type parseResponse struct {
	Document map[string]string `json:"document"`
	Keys     []string          `json:"keys"`
}

// handleParse turns a raw notification body into its document.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	doc, ok := notice.Parse(string(body))
	if !ok {
		jsonError(w, "no section markers found", http.StatusUnprocessableEntity)
		return
	}

	keys := make([]string, 0, len(doc))
	for _, k := range doc.Keys() {
		keys = append(keys, string(k))
	}
	writeJSON(w, http.StatusOK, parseResponse{Document: doc.Strings(), Keys: keys})
}

// handleClassify maps a single marker line to its key. The marker is decoded
// untyped so that non-string input resolves to the fallback key.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Marker any `json:"marker"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": string(notice.ClassifyValue(req.Marker))})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
