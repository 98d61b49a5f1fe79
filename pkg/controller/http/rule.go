package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/usecase"
)

type ruleResponse struct {
	ID               int64     `json:"id"`
	VersionID        int64     `json:"versionId"`
	RiskCode         string    `json:"riskCode"`
	RuleName         string    `json:"ruleName"`
	RuleType         string    `json:"ruleType"`
	Pattern          string    `json:"pattern"`
	Severity         string    `json:"severity,omitempty"`
	SeverityOverride *string   `json:"severityOverride"`
	Explanation      *string   `json:"explanation"`
	Suggestion       *string   `json:"suggestion"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	Level1           string    `json:"level1,omitempty"`
	Level2           string    `json:"level2,omitempty"`
	Level3           string    `json:"level3,omitempty"`
}

func toRuleResponse(r *model.Rule) ruleResponse {
	resp := ruleResponse{
		ID:          r.ID,
		VersionID:   r.VersionID,
		RiskCode:    r.RiskCode.String(),
		RuleName:    r.RuleName,
		RuleType:    r.RuleType.String(),
		Pattern:     r.Pattern,
		Explanation: r.ExplanationTemplate,
		Suggestion:  r.SuggestionTemplate,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
	if r.SeverityOverride != nil {
		sev := r.SeverityOverride.String()
		resp.SeverityOverride = &sev
	}
	return resp
}

func toRuleViewResponse(v *model.RuleView) ruleResponse {
	resp := toRuleResponse(v.Rule)
	resp.Severity = v.EffectiveSeverity.String()
	resp.Level1 = v.Level1
	resp.Level2 = v.Level2
	resp.Level3 = v.Level3
	return resp
}

type ruleRequest struct {
	VersionID   int64   `json:"versionId"`
	RiskCode    string  `json:"riskCode"`
	RuleName    *string `json:"ruleName"`
	RuleType    *string `json:"ruleType"`
	Pattern     *string `json:"pattern"`
	Severity    *string `json:"severity"`
	Explanation *string `json:"explanation"`
	Suggestion  *string `json:"suggestion"`
	IsActive    *bool   `json:"isActive"`
}

// ruleQuery reads the listing filters. A version_id that is not a number
// does not filter, like unknown rule_type and severity values.
func ruleQuery(r *http.Request) usecase.RuleQuery {
	q := r.URL.Query()
	query := usecase.RuleQuery{
		RiskCode: q.Get("risk_code"),
		RuleType: q.Get("rule_type"),
		Severity: q.Get("severity"),
	}

	if raw := q.Get("version_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			query.VersionID = id
		}
	}
	return query
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := s.uc.Rule.List(ctx, ruleQuery(r))
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	items := make([]ruleResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toRuleViewResponse(v))
	}
	writeJSON(ctx, w, http.StatusOK, newListResponse(items))
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	rule, err := s.uc.Rule.Get(ctx, id)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, itemResponse[ruleResponse]{Item: toRuleResponse(rule)})
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ruleRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	rule, err := s.uc.Rule.Create(ctx, usecase.RuleInput{
		VersionID:   req.VersionID,
		RiskCode:    req.RiskCode,
		RuleName:    deref(req.RuleName),
		RuleType:    deref(req.RuleType),
		Pattern:     deref(req.Pattern),
		Severity:    deref(req.Severity),
		Explanation: req.Explanation,
		Suggestion:  req.Suggestion,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, itemResponse[ruleResponse]{
		Message: "rule created",
		Item:    toRuleResponse(rule),
	})
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var req ruleRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	rule, err := s.uc.Rule.Update(ctx, id, usecase.RulePatch{
		RuleName:    req.RuleName,
		RuleType:    req.RuleType,
		Pattern:     req.Pattern,
		Severity:    req.Severity,
		Explanation: req.Explanation,
		Suggestion:  req.Suggestion,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, itemResponse[ruleResponse]{
		Message: "rule updated",
		Item:    toRuleResponse(rule),
	})
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	if err := s.uc.Rule.Delete(ctx, id); err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"message": "rule deleted"})
}
