package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
)

type versionRepository struct {
	s *store
}

// deactivateAll must be called with the write lock held
func (r *versionRepository) deactivateAll() {
	for id, v := range r.s.versions {
		if v.IsActive() {
			demoted := v.Copy()
			demoted.MarkInactive()
			r.s.versions[id] = demoted
		}
	}
}

func (r *versionRepository) Create(ctx context.Context, version *model.RuleSetVersion) (*model.RuleSetVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	created := version.Copy()
	created.ID = r.s.nextVersionID
	created.CreatedAt = now
	created.ActivatedAt = nil
	if created.IsActive() {
		r.deactivateAll()
		created.MarkActive(now)
	}
	r.s.nextVersionID++

	r.s.versions[created.ID] = created
	return created.Copy(), nil
}

func (r *versionRepository) Get(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, exists := r.s.versions[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
	}
	return v.Copy(), nil
}

func (r *versionRepository) GetActive(ctx context.Context) (*model.RuleSetVersion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, v := range r.s.versions {
		if v.Status == types.VersionStatusActive {
			return v.Copy(), nil
		}
	}
	return nil, nil
}

func (r *versionRepository) List(ctx context.Context) ([]*model.RuleSetVersion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	versions := make([]*model.RuleSetVersion, 0, len(r.s.versions))
	for _, v := range r.s.versions {
		versions = append(versions, v.Copy())
	}
	model.SortVersions(versions)
	return versions, nil
}

func (r *versionRepository) Activate(ctx context.Context, id int64, at time.Time) (*model.RuleSetVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	target, exists := r.s.versions[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
	}
	if err := target.CheckActivate(); err != nil {
		return nil, err
	}

	r.deactivateAll()
	activated := target.Copy()
	activated.MarkActive(at)
	r.s.versions[id] = activated

	return activated.Copy(), nil
}

func (r *versionRepository) Deactivate(ctx context.Context, id int64) (*model.RuleSetVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	target, exists := r.s.versions[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
	}
	if err := target.CheckDeactivate(); err != nil {
		return nil, err
	}

	deactivated := target.Copy()
	deactivated.MarkInactive()
	r.s.versions[id] = deactivated

	return deactivated.Copy(), nil
}

func (r *versionRepository) Delete(ctx context.Context, id int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	target, exists := r.s.versions[id]
	if !exists {
		return 0, goerr.Wrap(model.ErrNotFound, "rule set version not found", goerr.V(model.VersionIDKey, id))
	}
	if err := target.CheckDelete(); err != nil {
		return 0, err
	}

	removed := 0
	for ruleID, rule := range r.s.rules {
		if rule.VersionID == id {
			delete(r.s.rules, ruleID)
			removed++
		}
	}
	delete(r.s.versions, id)

	return removed, nil
}
