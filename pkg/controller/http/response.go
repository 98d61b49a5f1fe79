package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/errutil"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
)

// Error kinds written in the "kind" field of error responses
const (
	kindValidation          = "validation"
	kindNotFound            = "not_found"
	kindDuplicateKey        = "duplicate_key"
	kindReferentialConflict = "referential_conflict"
	kindInvalidTransition   = "invalid_transition"
	kindStoreUnavailable    = "store_unavailable"
	kindInternal            = "internal"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

type itemResponse[T any] struct {
	Message string `json:"message,omitempty"`
	Item    T      `json:"item"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(ctx).Error("failed to write response", "error", err)
	}
}

// errorStatus maps an error kind to its HTTP status
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, model.ErrDuplicateKey):
		return http.StatusConflict, kindDuplicateKey
	case errors.Is(err, model.ErrReferentialConflict):
		return http.StatusConflict, kindReferentialConflict
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusBadRequest, kindInvalidTransition
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, kindStoreUnavailable
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	status, kind := errorStatus(err)

	body := map[string]any{
		"error": err.Error(),
		"kind":  kind,
	}
	if status == http.StatusInternalServerError {
		body["error"] = "internal server error"
	}
	if n, ok := model.BlockingRuleCount(err); ok {
		body["ruleCount"] = n
	}
	if field, ok := model.ErrorValue(err, usecase.FieldKey); ok {
		body["field"] = field
	}

	errutil.HandleHTTP(ctx, w, err, status, body)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(model.ErrValidation, "malformed JSON body", goerr.V("cause", err.Error()))
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(model.ErrValidation, "invalid id", goerr.V(usecase.FieldKey, "id"), goerr.V("id", raw))
	}
	return id, nil
}
