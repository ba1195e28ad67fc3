package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kasetai/khonha/internal/artifact"
	"github.com/kasetai/khonha/internal/models"
)

type searchResponse struct {
	Result string `json:"result"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.RetrievalQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.String("category", query.Category),
		zap.Int("top_n", query.TopN))

	result, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.respondSearchError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Result: result})
}

// respondSearchError maps pipeline errors to HTTP statuses: unavailable
// artifacts are 503 (retryable once the cause is fixed), model failures are
// 500, anything else is treated as a bad request.
func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	var unavailable *models.IndexUnavailableError
	if errors.As(err, &unavailable) {
		s.logger.Error("artifact unavailable",
			zap.String("artifact", unavailable.Artifact), zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":    err.Error(),
			"artifact": unavailable.Artifact,
		})
		return
	}
	var embErr *models.EmbeddingError
	var rerankErr *models.RerankError
	if errors.As(err, &embErr) || errors.As(err, &rerankErr) {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}

type invalidateRequest struct {
	// Artifact selects one artifact by name; empty invalidates everything.
	Artifact string `json:"artifact,omitempty"`
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s.logger.Debug("invalidate request", zap.String("artifact", req.Artifact))

	var err error
	if req.Artifact == "" {
		err = s.artifacts.InvalidateAll(r.Context())
	} else {
		err = s.artifacts.Invalidate(r.Context(), req.Artifact)
	}
	if err != nil {
		s.logger.Error("invalidation failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	states := s.artifacts.States()
	resp := map[string]interface{}{
		"artifacts": states,
	}

	// Chunk count is only available when the store is already loaded;
	// status must never trigger a load itself.
	if states[artifact.NameChunkStore] == artifact.StateLoaded {
		if store, err := s.artifacts.ChunkStore(r.Context()); err == nil {
			if count, err := store.CountChunks(r.Context()); err == nil {
				resp["chunks"] = count
			}
		}
	}
	if diskBytes, err := s.artifacts.DiskUsage(); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"vector_index_type":    s.config.Search.VectorIndexType,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"dense_weight":         s.config.Search.DenseWeight,
		"sparse_weight":        s.config.Search.SparseWeight,
		"top_k_candidates":     s.config.Search.TopKCandidates,
		"rerank_top_n":         s.config.Rerank.TopN,
		"database_path":        s.config.Storage.DatabasePath,
		"bleve_index_path":     s.config.Storage.BleveIndexPath,
		"vector_index_path":    s.config.Storage.VectorIndexPath,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
