package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/indexsync"
	"github.com/ammadakrram/storefront-search/internal/projector"
	"github.com/ammadakrram/storefront-search/internal/reindex"
	apperrors "github.com/ammadakrram/storefront-search/pkg/errors"
	"github.com/ammadakrram/storefront-search/pkg/httputil"
	"github.com/ammadakrram/storefront-search/pkg/validator"
)

const maxBodyBytes = 1 << 20

// IndexHandler serves the internal write endpoints used by the catalog
// service and operators.
type IndexHandler struct {
	gateway *indexsync.Gateway
	runner  *reindex.Runner
	logger  *slog.Logger
}

// NewIndexHandler creates a new index HTTP handler. runner may be nil when
// no catalog source is configured.
func NewIndexHandler(gw *indexsync.Gateway, runner *reindex.Runner, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{gateway: gw, runner: runner, logger: logger}
}

// updatableFields are the document fields a partial update may set.
var updatableFields = func() map[string]bool {
	out := make(map[string]bool)
	for k := range projector.Fields(domain.Document{}) {
		out[k] = true
	}
	return out
}()

// IndexProduct handles PUT /api/v1/search/products/{id}
func (h *IndexHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload catalog.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if payload.ID == "" {
		payload.ID = id
	}
	if payload.ID != id {
		httputil.WriteError(w, r, apperrors.InvalidInput("body id does not match path id"), h.logger)
		return
	}
	if err := validator.Validate(payload); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res := h.gateway.IndexDocument(r.Context(), payload.Product())
	if !res.OK() {
		h.writeResult(w, r, res)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id, "status": "indexed"})
}

// UpdateProduct handles PATCH /api/v1/search/products/{id}. The body is a
// map of document fields; an unindexed product is reported, not created.
func (h *IndexHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := checkFields(fields); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res := h.gateway.UpdateDocument(r.Context(), id, fields)
	if !res.OK() {
		h.writeResult(w, r, res)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id, "status": "updated"})
}

// checkFields rejects empty bodies, unknown keys and values of the wrong
// type before anything reaches the engine.
func checkFields(fields map[string]any) error {
	if len(fields) == 0 {
		return apperrors.InvalidInput("no fields to update")
	}
	var unknown []string
	for k := range fields {
		if !updatableFields[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperrors.InvalidInput("unknown fields: " + strings.Join(unknown, ", "))
	}
	if _, err := projector.Merge(domain.Document{}, fields); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("invalid field value: %v", err))
	}
	return nil
}

// RemoveProduct handles DELETE /api/v1/search/products/{id}
func (h *IndexHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res := h.gateway.RemoveDocument(r.Context(), id)
	if !res.OK() {
		h.writeResult(w, r, res)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IndexHandler) writeResult(w http.ResponseWriter, r *http.Request, res indexsync.Result) {
	switch {
	case res.Missing():
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "DOCUMENT_MISSING",
				Message: fmt.Sprintf("product %s is not indexed; run a reindex", res.ID),
			},
		})
	case res.Unavailable():
		httputil.WriteError(w, r, apperrors.ServiceUnavailable("search engine", res.Err), h.logger)
	default:
		httputil.WriteError(w, r, apperrors.Internal(res.Err), h.logger)
	}
}

// StartReindex handles POST /api/v1/search/reindex
func (h *IndexHandler) StartReindex(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		httputil.WriteError(w, r, apperrors.ServiceUnavailable("catalog source", nil), h.logger)
		return
	}
	if err := h.runner.Start(); err != nil {
		if errors.Is(err, reindex.ErrAlreadyRunning) {
			httputil.WriteError(w, r, apperrors.Conflict(err.Error()), h.logger)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusAccepted, h.runner.State())
}

// ReindexStatus handles GET /api/v1/search/reindex
func (h *IndexHandler) ReindexStatus(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		httputil.WriteError(w, r, apperrors.ServiceUnavailable("catalog source", nil), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.runner.State())
}
