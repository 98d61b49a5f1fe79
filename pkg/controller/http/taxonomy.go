package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/usecase"
)

type taxonomyResponse struct {
	RiskCode    string    `json:"riskCode"`
	Level1      string    `json:"level1"`
	Level2      string    `json:"level2"`
	Level3      string    `json:"level3"`
	RiskLevel   string    `json:"riskLevel"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaxonomyResponse(e *model.RiskTaxonomyEntry) taxonomyResponse {
	return taxonomyResponse{
		RiskCode:    e.RiskCode.String(),
		Level1:      e.Level1,
		Level2:      e.Level2,
		Level3:      e.Level3,
		RiskLevel:   e.DefaultRiskLevel.String(),
		Description: e.Description,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type taxonomyRequest struct {
	RiskCode    string  `json:"riskCode"`
	Level1      *string `json:"level1"`
	Level2      *string `json:"level2"`
	Level3      *string `json:"level3"`
	RiskLevel   *string `json:"riskLevel"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) listTaxonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.uc.Taxonomy.List(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	items := make([]taxonomyResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toTaxonomyResponse(e))
	}
	writeJSON(ctx, w, http.StatusOK, newListResponse(items))
}

func (s *Server) getTaxonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := s.uc.Taxonomy.Get(ctx, chi.URLParam(r, "code"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, itemResponse[taxonomyResponse]{Item: toTaxonomyResponse(entry)})
}

func (s *Server) createTaxonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req taxonomyRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	entry, err := s.uc.Taxonomy.Create(ctx, usecase.TaxonomyInput{
		RiskCode:    req.RiskCode,
		Level1:      deref(req.Level1),
		Level2:      deref(req.Level2),
		Level3:      deref(req.Level3),
		RiskLevel:   deref(req.RiskLevel),
		Description: deref(req.Description),
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, itemResponse[taxonomyResponse]{
		Message: "taxonomy entry created",
		Item:    toTaxonomyResponse(entry),
	})
}

func (s *Server) updateTaxonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req taxonomyRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	entry, err := s.uc.Taxonomy.Update(ctx, chi.URLParam(r, "code"), usecase.TaxonomyPatch{
		Level1:      req.Level1,
		Level2:      req.Level2,
		Level3:      req.Level3,
		RiskLevel:   req.RiskLevel,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, itemResponse[taxonomyResponse]{
		Message: "taxonomy entry updated",
		Item:    toTaxonomyResponse(entry),
	})
}

func (s *Server) deleteTaxonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Taxonomy.Delete(ctx, chi.URLParam(r, "code")); err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"message": "taxonomy entry deleted"})
}
