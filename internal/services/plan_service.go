package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"busta/internal/cache"
	"busta/internal/core"
	"busta/internal/storage"
)

// ErrMonthLocked is returned when a mutation targets a locked month.
var ErrMonthLocked = errors.New("month is locked")

// Publisher notifies downstream consumers that the plan changed.
type Publisher interface {
	PublishPlanChanged(ctx context.Context, entityKind, entityID, month string, revision int64) error
}

// Entity kinds used in snapshot queue entries and change messages.
const (
	kindBucket      = "bucket"
	kindGroup       = "group"
	kindSubCategory = "subcategory"
	kindTemplate    = "template"
	kindMonthConfig = "month_config"
)

// PlanService orchestrates plan mutations and resolution across the
// repository, the change queue and the resolution cache.
type PlanService struct {
	repo      storage.Repository
	publisher Publisher
	payday    int
	costs     *cache.LRUCache[core.Money]
}

func NewPlanService(repo storage.Repository, publisher Publisher, defaultPayday int, costCache *cache.LRUCache[core.Money]) *PlanService {
	return &PlanService{
		repo:      repo,
		publisher: publisher,
		payday:    defaultPayday,
		costs:     costCache,
	}
}

// DefaultPayday returns the payday used when a request does not carry one.
func (s *PlanService) DefaultPayday() int { return s.payday }

func (s *PlanService) paydayOr(payday int) int {
	if payday == 0 {
		return s.payday
	}
	return payday
}

// ResolveBucketCost computes the cost of one bucket for one month. Results
// are memoized per plan revision, so repeated reads of an unchanged plan
// never recompute.
func (s *PlanService) ResolveBucketCost(ctx context.Context, bucketID string, month core.MonthKey, payday int) (core.Money, error) {
	payday = s.paydayOr(payday)

	rev, err := s.repo.Revision(ctx)
	if err != nil {
		return core.Money{}, err
	}

	key := fmt.Sprintf("%s|%s|%d|%d", bucketID, month, payday, rev)
	if s.costs != nil {
		if cost, ok := s.costs.Get(key); ok {
			return cost, nil
		}
	}

	b, err := s.repo.GetBucket(ctx, bucketID)
	if err != nil {
		return core.Money{}, err
	}
	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return core.Money{}, err
	}
	txns, err := s.repo.ListTransactions(ctx, bucketID)
	if err != nil {
		return core.Money{}, err
	}

	cost, err := core.BucketCost(b, month, core.CostInputs{
		Payday:       payday,
		Plan:         plan,
		Transactions: txns,
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("resolve bucket cost: %w", err)
	}

	if s.costs != nil {
		s.costs.Set(key, cost)
	}
	return cost, nil
}

// BucketLine is one bucket's resolved entry in a month plan.
type BucketLine struct {
	ID     string
	Name   string
	Type   core.BucketType
	Cost   core.Money
	Source core.Source
}

// GroupLine is one group's resolved spending limit in a month plan.
type GroupLine struct {
	ID     string
	Name   string
	Limit  core.Money
	Source core.Source
}

// SubCategoryLine is one sub-category's resolved budget in a month plan.
type SubCategoryLine struct {
	ID     string
	Name   string
	Budget core.Money
	Source core.Source
}

// MonthPlan is the fully resolved view of one month: every bucket costed
// over the pay interval, every group limit and sub-category budget layered.
type MonthPlan struct {
	Month         core.MonthKey
	Payday        int
	Interval      core.Interval
	Buckets       []BucketLine
	Groups        []GroupLine
	SubCategories []SubCategoryLine
	TotalCost     core.Money
}

// MonthPlanFor resolves the complete plan for a month. Archived buckets are
// included only while they still report a cost.
func (s *PlanService) MonthPlanFor(ctx context.Context, month core.MonthKey, payday int) (MonthPlan, error) {
	payday = s.paydayOr(payday)

	iv, err := core.ResolveInterval(month, payday)
	if err != nil {
		return MonthPlan{}, err
	}

	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return MonthPlan{}, err
	}
	buckets, err := s.repo.ListBuckets(ctx)
	if err != nil {
		return MonthPlan{}, err
	}
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return MonthPlan{}, err
	}
	subs, err := s.repo.ListSubCategories(ctx)
	if err != nil {
		return MonthPlan{}, err
	}

	out := MonthPlan{Month: month, Payday: payday, Interval: iv}

	for _, b := range buckets {
		txns, err := s.repo.ListTransactions(ctx, b.ID)
		if err != nil {
			return MonthPlan{}, err
		}
		cost, err := core.BucketCost(b, month, core.CostInputs{
			Payday:       payday,
			Plan:         plan,
			Transactions: txns,
		})
		if err != nil {
			return MonthPlan{}, fmt.Errorf("cost bucket %s: %w", b.ID, err)
		}
		if b.ArchivedAsOf(month) && cost.IsZero() {
			continue
		}
		_, source := plan.BucketValue(b, month)
		out.Buckets = append(out.Buckets, BucketLine{
			ID:     b.ID,
			Name:   b.Name,
			Type:   b.Type,
			Cost:   cost,
			Source: source,
		})
		out.TotalCost = out.TotalCost.Add(cost)
	}

	for _, g := range groups {
		layered := plan.GroupLimit(g, month)
		if layered.Source == core.SourceNone {
			continue
		}
		out.Groups = append(out.Groups, GroupLine{
			ID:     g.ID,
			Name:   g.Name,
			Limit:  layered.Amount,
			Source: layered.Source,
		})
	}

	for _, sc := range subs {
		layered := plan.SubCategoryBudget(sc.ID, month)
		if layered.Source == core.SourceNone {
			continue
		}
		out.SubCategories = append(out.SubCategories, SubCategoryLine{
			ID:     sc.ID,
			Name:   sc.Name,
			Budget: layered.Amount,
			Source: layered.Source,
		})
	}

	return out, nil
}

// CreateBucket validates and persists a new bucket, assigning it an ID.
func (s *PlanService) CreateBucket(ctx context.Context, b core.Bucket) (core.Bucket, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.PaymentSource == "" {
		b.PaymentSource = core.SourceIncome
	}
	if err := b.Validate(); err != nil {
		return core.Bucket{}, fmt.Errorf("validate bucket: %w", err)
	}
	if b.MonthlyData == nil {
		b.MonthlyData = make(map[core.MonthKey]core.BucketData)
	}

	if err := s.repo.SaveBucket(ctx, b); err != nil {
		return core.Bucket{}, err
	}
	if err := s.afterMutation(ctx, kindBucket, b.ID, ""); err != nil {
		return core.Bucket{}, err
	}
	return b, nil
}

// EditBucketMonth pins a bucket's value for a month. The write lands on the
// edited month only; earlier and later months keep their own resolution.
func (s *PlanService) EditBucketMonth(ctx context.Context, bucketID string, month core.MonthKey, data core.BucketData) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	b, err := s.repo.GetBucket(ctx, bucketID)
	if err != nil {
		return err
	}
	if b.MonthlyData == nil {
		b.MonthlyData = make(map[core.MonthKey]core.BucketData)
	}
	b.MonthlyData[month] = data

	if err := s.repo.SaveBucket(ctx, b); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindBucket, bucketID, string(month))
}

// ConfirmBucketMonth pins the currently effective value so later edits to
// earlier months cannot change this one. Confirming a month that already
// has its own entry is a no-op.
func (s *PlanService) ConfirmBucketMonth(ctx context.Context, bucketID string, month core.MonthKey) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	b, err := s.repo.GetBucket(ctx, bucketID)
	if err != nil {
		return err
	}
	if !b.ConfirmMonth(month) {
		return nil
	}
	if err := s.repo.SaveBucket(ctx, b); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindBucket, bucketID, string(month))
}

// DeleteBucket applies a deletion scope. ALL removes the bucket entirely and
// unlinks its transactions; the month-bounded scopes rewrite the month
// series and keep the bucket.
func (s *PlanService) DeleteBucket(ctx context.Context, bucketID string, month core.MonthKey, scope core.DeletionScope) error {
	if scope == core.DeleteAll {
		if err := s.repo.ClearBucketReferences(ctx, bucketID); err != nil {
			return err
		}
		if err := s.repo.DeleteBucket(ctx, bucketID); err != nil {
			return err
		}
		return s.afterMutation(ctx, kindBucket, bucketID, "")
	}

	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	b, err := s.repo.GetBucket(ctx, bucketID)
	if err != nil {
		return err
	}
	updated, err := core.ApplyDeletionScope(b, month, scope)
	if err != nil {
		return err
	}
	if err := s.repo.SaveBucket(ctx, updated); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindBucket, bucketID, string(month))
}

// CreateGroup persists a new budget group, assigning it an ID.
func (s *PlanService) CreateGroup(ctx context.Context, g core.BudgetGroup) (core.BudgetGroup, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Name == "" {
		return core.BudgetGroup{}, core.ErrEmptyName
	}
	if g.MonthlyData == nil {
		g.MonthlyData = make(map[core.MonthKey]core.GroupData)
	}

	if err := s.repo.SaveGroup(ctx, g); err != nil {
		return core.BudgetGroup{}, err
	}
	if err := s.afterMutation(ctx, kindGroup, g.ID, ""); err != nil {
		return core.BudgetGroup{}, err
	}
	return g, nil
}

// SetGroupLimit pins a group's spending limit for a month.
func (s *PlanService) SetGroupLimit(ctx context.Context, groupID string, month core.MonthKey, limit core.Money) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.MonthlyData == nil {
		g.MonthlyData = make(map[core.MonthKey]core.GroupData)
	}
	g.MonthlyData[month] = core.GroupData{Limit: limit}

	if err := s.repo.SaveGroup(ctx, g); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindGroup, groupID, string(month))
}

// ConfirmGroupMonth pins the currently effective limit for a month.
func (s *PlanService) ConfirmGroupMonth(ctx context.Context, groupID string, month core.MonthKey) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.ConfirmMonth(month) {
		return nil
	}
	if err := s.repo.SaveGroup(ctx, g); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindGroup, groupID, string(month))
}

// CreateSubCategory persists a new sub-category, assigning it an ID.
// Sub-categories carry no monthly series; their budgets come from the
// template and override layers.
func (s *PlanService) CreateSubCategory(ctx context.Context, sc core.SubCategory) (core.SubCategory, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.Name == "" {
		return core.SubCategory{}, core.ErrEmptyName
	}

	if err := s.repo.SaveSubCategory(ctx, sc); err != nil {
		return core.SubCategory{}, err
	}
	if err := s.afterMutation(ctx, kindSubCategory, sc.ID, ""); err != nil {
		return core.SubCategory{}, err
	}
	return sc, nil
}

// RecordTransaction stores a transaction. A linked goal bucket sees its
// consumption change, so that bucket's cached costs are dropped.
func (s *PlanService) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	if err := s.repo.SaveTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	if t.BucketID != "" {
		if err := s.afterMutation(ctx, kindBucket, t.BucketID, ""); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

// CreateTemplate persists a new budget template, assigning it an ID.
func (s *PlanService) CreateTemplate(ctx context.Context, t core.BudgetTemplate) (core.BudgetTemplate, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Name == "" {
		return core.BudgetTemplate{}, core.ErrEmptyName
	}

	if err := s.repo.SaveTemplate(ctx, t); err != nil {
		return core.BudgetTemplate{}, err
	}
	if err := s.afterMutation(ctx, kindTemplate, t.ID, ""); err != nil {
		return core.BudgetTemplate{}, err
	}
	return t, nil
}

// AssignTemplate points a month at a template, dropping the month's
// overrides: they were deltas on the previous baseline.
func (s *PlanService) AssignTemplate(ctx context.Context, month core.MonthKey, templateID string) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return err
	}
	if _, ok := plan.Templates[templateID]; !ok {
		return fmt.Errorf("template %s: %w", templateID, storage.ErrNotFound)
	}
	plan.AssignTemplateToMonth(month, templateID)

	if err := s.repo.SaveMonthConfig(ctx, plan.MonthConfigs[month]); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindMonthConfig, string(month), string(month))
}

// ResetMonth clears a month's overrides without changing its template.
func (s *PlanService) ResetMonth(ctx context.Context, month core.MonthKey) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return err
	}
	cfg, ok := plan.MonthConfigs[month]
	if !ok {
		return nil
	}
	plan.ResetMonthToTemplate(month)
	cfg = plan.MonthConfigs[month]

	if err := s.repo.SaveMonthConfig(ctx, cfg); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindMonthConfig, string(month), string(month))
}

// SnapshotTemplate flattens a month's effective values into a new
// independent template and persists it.
func (s *PlanService) SnapshotTemplate(ctx context.Context, name string, source core.MonthKey) (core.BudgetTemplate, error) {
	if !source.Valid() {
		return core.BudgetTemplate{}, fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, source)
	}
	if name == "" {
		return core.BudgetTemplate{}, core.ErrEmptyName
	}

	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return core.BudgetTemplate{}, err
	}
	snap := plan.SnapshotTemplate(uuid.NewString(), name, source)

	if err := s.repo.SaveTemplate(ctx, snap); err != nil {
		return core.BudgetTemplate{}, err
	}
	if err := s.afterMutation(ctx, kindTemplate, snap.ID, string(source)); err != nil {
		return core.BudgetTemplate{}, err
	}
	return snap, nil
}

// SetBucketOverride writes a month-config exception for a bucket. Unlike a
// pinned edit on the bucket itself, the override is a delta on the month's
// template and disappears on template switch or reset.
func (s *PlanService) SetBucketOverride(ctx context.Context, month core.MonthKey, bucketID string, data core.BucketData) error {
	return s.setOverride(ctx, month, func(cfg *core.MonthConfig) {
		if cfg.BucketOverrides == nil {
			cfg.BucketOverrides = make(map[string]core.BucketData)
		}
		cfg.BucketOverrides[bucketID] = data
	})
}

// SetGroupOverride writes a month-config exception for a group limit.
func (s *PlanService) SetGroupOverride(ctx context.Context, month core.MonthKey, groupID string, limit core.Money) error {
	return s.setOverride(ctx, month, func(cfg *core.MonthConfig) {
		if cfg.GroupOverrides == nil {
			cfg.GroupOverrides = make(map[string]core.Money)
		}
		cfg.GroupOverrides[groupID] = limit
	})
}

// SetSubCategoryOverride writes a month-config exception for a sub-category.
func (s *PlanService) SetSubCategoryOverride(ctx context.Context, month core.MonthKey, subID string, amount core.Money) error {
	return s.setOverride(ctx, month, func(cfg *core.MonthConfig) {
		if cfg.SubCategoryOverrides == nil {
			cfg.SubCategoryOverrides = make(map[string]core.Money)
		}
		cfg.SubCategoryOverrides[subID] = amount
	})
}

func (s *PlanService) setOverride(ctx context.Context, month core.MonthKey, apply func(*core.MonthConfig)) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	if err := s.ensureUnlocked(ctx, month); err != nil {
		return err
	}

	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return err
	}
	cfg, ok := plan.MonthConfigs[month]
	if !ok {
		cfg = core.MonthConfig{Month: month}
		if tpl, hasDefault := plan.DefaultTemplate(); hasDefault {
			cfg.TemplateID = tpl.ID
		}
	}
	apply(&cfg)

	if err := s.repo.SaveMonthConfig(ctx, cfg); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindMonthConfig, string(month), string(month))
}

// LockMonth freezes a month against further mutations.
func (s *PlanService) LockMonth(ctx context.Context, month core.MonthKey, locked bool) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}

	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return err
	}
	cfg, ok := plan.MonthConfigs[month]
	if !ok {
		cfg = core.MonthConfig{Month: month}
		if tpl, hasDefault := plan.DefaultTemplate(); hasDefault {
			cfg.TemplateID = tpl.ID
		}
	}
	cfg.Locked = locked

	if err := s.repo.SaveMonthConfig(ctx, cfg); err != nil {
		return err
	}
	return s.afterMutation(ctx, kindMonthConfig, string(month), string(month))
}

func (s *PlanService) ensureUnlocked(ctx context.Context, month core.MonthKey) error {
	plan, err := s.repo.LoadPlan(ctx)
	if err != nil {
		return err
	}
	if cfg, ok := plan.MonthConfigs[month]; ok && cfg.Locked {
		return fmt.Errorf("%w: %s", ErrMonthLocked, month)
	}
	return nil
}

// afterMutation runs the shared post-write path: bump the plan revision,
// drop stale cache entries, queue the change for the snapshot worker, and
// publish the change event. Queue and publish failures are logged, not
// returned, because the local write already succeeded.
func (s *PlanService) afterMutation(ctx context.Context, entityKind, entityID, month string) error {
	rev, err := s.repo.BumpRevision(ctx)
	if err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}

	if s.costs != nil {
		s.costs.DeletePrefix(entityID + "|")
	}

	if err := s.repo.EnqueueSnapshot(ctx, entityKind, entityID, month, rev); err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue snapshot",
			"entity_kind", entityKind, "entity_id", entityID, "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPlanChanged(ctx, entityKind, entityID, month, rev); err != nil {
			slog.ErrorContext(ctx, "Failed to publish plan change",
				"entity_kind", entityKind, "entity_id", entityID, "error", err)
			// Don't fail the request - the change is saved locally and the
			// snapshot queue will catch up.
		}
	}

	return nil
}

// Close closes the underlying repository.
func (s *PlanService) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
