package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"busta/internal/core"
)

// MemoryRepository keeps the whole plan in process memory. It backs tests
// and the default development backend.
type MemoryRepository struct {
	mu sync.RWMutex

	buckets       map[string]core.Bucket
	groups        map[string]core.BudgetGroup
	subcategories map[string]core.SubCategory
	templates     map[string]core.BudgetTemplate
	monthConfigs  map[core.MonthKey]core.MonthConfig
	transactions  map[string]core.Transaction

	snapshots  []PendingSnapshot
	nextSnapID int64
	revision   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		buckets:       make(map[string]core.Bucket),
		groups:        make(map[string]core.BudgetGroup),
		subcategories: make(map[string]core.SubCategory),
		templates:     make(map[string]core.BudgetTemplate),
		monthConfigs:  make(map[core.MonthKey]core.MonthConfig),
		transactions:  make(map[string]core.Transaction),
		nextSnapID:    1,
	}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) GetBucket(ctx context.Context, id string) (core.Bucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[id]
	if !ok {
		return core.Bucket{}, fmt.Errorf("bucket %s: %w", id, ErrNotFound)
	}
	return b.Clone(), nil
}

func (r *MemoryRepository) ListBuckets(ctx context.Context) ([]core.Bucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	buckets := make([]core.Bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		buckets = append(buckets, b.Clone())
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (r *MemoryRepository) SaveBucket(ctx context.Context, b core.Bucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buckets[b.ID] = b.Clone()
	return nil
}

func (r *MemoryRepository) DeleteBucket(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buckets[id]; !ok {
		return fmt.Errorf("bucket %s: %w", id, ErrNotFound)
	}
	delete(r.buckets, id)
	return nil
}

func (r *MemoryRepository) GetGroup(ctx context.Context, id string) (core.BudgetGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return core.BudgetGroup{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return cloneGroup(g), nil
}

func (r *MemoryRepository) ListGroups(ctx context.Context) ([]core.BudgetGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]core.BudgetGroup, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, cloneGroup(g))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (r *MemoryRepository) SaveGroup(ctx context.Context, g core.BudgetGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r *MemoryRepository) ListSubCategories(ctx context.Context) ([]core.SubCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]core.SubCategory, 0, len(r.subcategories))
	for _, s := range r.subcategories {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs, nil
}

func (r *MemoryRepository) SaveSubCategory(ctx context.Context, s core.SubCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subcategories[s.ID] = s
	return nil
}

func (r *MemoryRepository) LoadPlan(ctx context.Context) (core.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan := core.Plan{
		Templates:    make(map[string]core.BudgetTemplate, len(r.templates)),
		MonthConfigs: make(map[core.MonthKey]core.MonthConfig, len(r.monthConfigs)),
	}
	for id, t := range r.templates {
		plan.Templates[id] = t.Clone()
	}
	for month, c := range r.monthConfigs {
		plan.MonthConfigs[month] = cloneMonthConfig(c)
	}
	return plan, nil
}

func (r *MemoryRepository) SaveTemplate(ctx context.Context, t core.BudgetTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.IsDefault {
		for id, other := range r.templates {
			if id != t.ID && other.IsDefault {
				other.IsDefault = false
				r.templates[id] = other
			}
		}
	}
	r.templates[t.ID] = t.Clone()
	return nil
}

func (r *MemoryRepository) SaveMonthConfig(ctx context.Context, c core.MonthConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.monthConfigs[c.Month] = cloneMonthConfig(c)
	return nil
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, bucketID string) ([]core.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var txns []core.Transaction
	for _, t := range r.transactions {
		if bucketID == "" || t.BucketID == bucketID {
			txns = append(txns, t)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	return txns, nil
}

func (r *MemoryRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transactions[t.ID] = t
	return nil
}

func (r *MemoryRepository) ClearBucketReferences(ctx context.Context, bucketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.transactions {
		if t.BucketID == bucketID {
			t.BucketID = ""
			r.transactions[id] = t
		}
	}
	return nil
}

func (r *MemoryRepository) EnqueueSnapshot(ctx context.Context, entityKind, entityID, month string, revision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, PendingSnapshot{
		ID:         r.nextSnapID,
		EntityKind: entityKind,
		EntityID:   entityID,
		Month:      month,
		Revision:   revision,
		CreatedAt:  time.Now(),
	})
	r.nextSnapID++
	return nil
}

func (r *MemoryRepository) PendingSnapshots(ctx context.Context, limit int) ([]PendingSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.snapshots) {
		limit = len(r.snapshots)
	}
	out := make([]PendingSnapshot, limit)
	copy(out, r.snapshots[:limit])
	return out, nil
}

func (r *MemoryRepository) MarkSnapshotDone(ctx context.Context, id int64) error {
	return r.removeSnapshot(id)
}

func (r *MemoryRepository) MarkSnapshotError(ctx context.Context, id int64) error {
	return r.removeSnapshot(id)
}

func (r *MemoryRepository) removeSnapshot(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.snapshots {
		if s.ID == id {
			r.snapshots = append(r.snapshots[:i], r.snapshots[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
}

func (r *MemoryRepository) BumpRevision(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.revision++
	return r.revision, nil
}

func (r *MemoryRepository) Revision(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision, nil
}

func cloneGroup(g core.BudgetGroup) core.BudgetGroup {
	out := g
	out.LinkedBucketIDs = append([]string(nil), g.LinkedBucketIDs...)
	out.MonthlyData = make(map[core.MonthKey]core.GroupData, len(g.MonthlyData))
	for k, v := range g.MonthlyData {
		out.MonthlyData[k] = v
	}
	return out
}

func cloneMonthConfig(c core.MonthConfig) core.MonthConfig {
	out := c
	if c.GroupOverrides != nil {
		out.GroupOverrides = make(map[string]core.Money, len(c.GroupOverrides))
		for k, v := range c.GroupOverrides {
			out.GroupOverrides[k] = v
		}
	}
	if c.SubCategoryOverrides != nil {
		out.SubCategoryOverrides = make(map[string]core.Money, len(c.SubCategoryOverrides))
		for k, v := range c.SubCategoryOverrides {
			out.SubCategoryOverrides[k] = v
		}
	}
	if c.BucketOverrides != nil {
		out.BucketOverrides = make(map[string]core.BucketData, len(c.BucketOverrides))
		for k, v := range c.BucketOverrides {
			out.BucketOverrides[k] = v
		}
	}
	return out
}
