package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapml/internal/dataset"
	"github.com/leapstack-labs/leapml/internal/engine"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// Prefixes for server-side failures, one per operation.
const (
	uploadFailed   = "Failed to process dataset:"
	pipelineFailed = "Pipeline execution failed:"
	predictFailed  = "Prediction failed:"
	exportFailed   = "Model export failed:"
	runsFailed     = "Failed to list runs:"
)

type handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadDataset streams the multipart "file" part into the engine without
// buffering the request body in memory.
func (h *handlers) uploadDataset(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Expected a multipart form with a file field.", "")
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("Malformed multipart body: %v", err), "")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		summary, err := h.engine.Upload(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			h.logger.Debug("upload rejected", "filename", part.FileName(), "error", err)
			writeError(w, err, uploadFailed)
			return
		}
		h.writeJSON(w, http.StatusOK, summary)
		return
	}
	writeDetail(w, http.StatusUnprocessableEntity, "Field required: file", "")
}

func (h *handlers) listDatasets(w http.ResponseWriter, _ *http.Request) {
	infos := h.engine.ListDatasets()
	if infos == nil {
		infos = []dataset.Info{}
	}
	h.writeJSON(w, http.StatusOK, infos)
}

func (h *handlers) getDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Dataset(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, uploadFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) runPipeline(w http.ResponseWriter, r *http.Request) {
	var req core.TrainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.engine.Train(r.Context(), req)
	if err != nil {
		writeError(w, err, pipelineFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var req core.PredictRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.engine.Predict(r.Context(), req)
	if err != nil {
		writeError(w, err, predictFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listModels(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Models())
}

func (h *handlers) downloadModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.engine.Export(id)
	if err != nil {
		writeError(w, err, exportFailed)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="model-%s.gob"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *handlers) modelRecipe(w http.ResponseWriter, r *http.Request) {
	data, err := h.engine.Manifest(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, exportFailed)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(data)
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusUnprocessableEntity, "limit must be a positive integer", "")
			return
		}
		limit = n
	}
	runs, err := h.engine.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, err, runsFailed)
		return
	}
	if runs == nil {
		runs = []*core.Run{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// decodeJSON reads the request body into v. On failure it writes a 422 and
// returns false.
func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %v", err), "")
		return false
	}
	return true
}
