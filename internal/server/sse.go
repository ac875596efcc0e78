package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter frames JSON payloads as server-sent events. Every payload is a
// "data: <json>\n\n" line; the stream ends with exactly one "data: [DONE]"
// sentinel.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	done    bool
}

// newSSEWriter prepares the response for event streaming.
func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

// WriteJSON frames v as one SSE data line.
func (s *sseWriter) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

// WriteDone emits the [DONE] sentinel. Idempotent: only the first call
// writes.
func (s *sseWriter) WriteDone() error {
	if s.done {
		return nil
	}
	s.done = true

	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
