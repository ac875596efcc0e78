package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorDetail{
			Message: "invalid request body: " + err.Error(),
			Type:    "invalid_request_error",
		})
		return
	}

	inputs, err := req.inputs()
	if err != nil {
		writeError(w, http.StatusBadRequest, errorDetail{
			Message: err.Error(),
			Type:    "invalid_request_error",
			Param:   "input",
		})
		return
	}
	if len(inputs) == 0 {
		writeError(w, http.StatusBadRequest, errorDetail{
			Message: "input cannot be empty",
			Type:    "invalid_request_error",
			Param:   "input",
		})
		return
	}

	data := make([]embeddingItem, 0, len(inputs))
	for i, text := range inputs {
		vec, err := s.embedder.Embed(r.Context(), text)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errorDetail{
				Message: err.Error(),
				Type:    "server_error",
				Code:    "embedding_failed",
			})
			return
		}
		data = append(data, embeddingItem{
			Object:    "embedding",
			Embedding: vec,
			Index:     i,
		})
	}

	model := req.Model
	if model == "" {
		model = s.embedder.Model()
	}

	writeJSON(w, http.StatusOK, embeddingsResponse{
		Object: "list",
		Data:   data,
		Model:  model,
	})
}
