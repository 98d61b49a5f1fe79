package http

import (
	"net/http"
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

type resolvedRulesResponse struct {
	Items      []model.DecodedRule `json:"items"`
	Total      int                 `json:"total"`
	Source     string              `json:"source"`
	ResolvedAt time.Time           `json:"resolvedAt"`
}

// resolvedRules serves the effective rule set. It never fails: the
// resolver degrades to the snapshot or an empty list.
func (s *Server) resolvedRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.uc.Resolver.Resolve(ctx)

	writeJSON(ctx, w, http.StatusOK, resolvedRulesResponse{
		Items:      res.Rules,
		Total:      len(res.Rules),
		Source:     string(res.Source),
		ResolvedAt: res.ResolvedAt,
	})
}
