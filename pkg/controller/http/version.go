package http

import (
	"net/http"
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/usecase"
)

type versionResponse struct {
	ID          int64      `json:"id"`
	VersionName string     `json:"versionName"`
	Industry    string     `json:"industry"`
	Status      string     `json:"status"`
	Changelog   string     `json:"changelog"`
	CreatedAt   time.Time  `json:"createdAt"`
	ActivatedAt *time.Time `json:"activatedAt"`
}

func toVersionResponse(v *model.RuleSetVersion) versionResponse {
	return versionResponse{
		ID:          v.ID,
		VersionName: v.Name,
		Industry:    v.Industry.String(),
		Status:      v.Status.String(),
		Changelog:   v.Changelog,
		CreatedAt:   v.CreatedAt,
		ActivatedAt: v.ActivatedAt,
	}
}

type versionRequest struct {
	VersionName string `json:"versionName"`
	Industry    string `json:"industry"`
	Status      string `json:"status"`
	Changelog   string `json:"changelog"`
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versions, err := s.uc.Version.List(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	items := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		items = append(items, toVersionResponse(v))
	}
	writeJSON(ctx, w, http.StatusOK, newListResponse(items))
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	v, err := s.uc.Version.Get(ctx, id)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, itemResponse[versionResponse]{Item: toVersionResponse(v)})
}

// getActiveVersion responds with {"item": null} when no version is active
func (s *Server) getActiveVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := s.uc.Version.GetActive(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	resp := itemResponse[*versionResponse]{}
	if v != nil {
		item := toVersionResponse(v)
		resp.Item = &item
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) createVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req versionRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	v, err := s.uc.Version.Create(ctx, usecase.VersionInput{
		Name:      req.VersionName,
		Industry:  req.Industry,
		Status:    req.Status,
		Changelog: req.Changelog,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, itemResponse[versionResponse]{
		Message: "rule set version created",
		Item:    toVersionResponse(v),
	})
}

func (s *Server) activateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	v, err := s.uc.Version.Activate(ctx, id)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, itemResponse[versionResponse]{
		Message: "rule set version activated",
		Item:    toVersionResponse(v),
	})
}

func (s *Server) deactivateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	v, err := s.uc.Version.Deactivate(ctx, id)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, itemResponse[versionResponse]{
		Message: "rule set version deactivated",
		Item:    toVersionResponse(v),
	})
}

func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	removed, err := s.uc.Version.Delete(ctx, id)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"message":      "rule set version deleted",
		"deletedRules": removed,
	})
}
