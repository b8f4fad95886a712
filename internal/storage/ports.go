package storage

import (
	"context"
	"errors"
	"time"

	"busta/internal/core"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// PendingSnapshot is a queued plan change waiting to be exported.
type PendingSnapshot struct {
	ID         int64
	EntityKind string
	EntityID   string
	Month      string
	Revision   int64
	CreatedAt  time.Time
}

// Repository is the persistence port for the budget plan. Both the SQLite
// and the in-memory implementations satisfy it.
type Repository interface {
	// Buckets
	GetBucket(ctx context.Context, id string) (core.Bucket, error)
	ListBuckets(ctx context.Context) ([]core.Bucket, error)
	SaveBucket(ctx context.Context, b core.Bucket) error
	DeleteBucket(ctx context.Context, id string) error

	// Budget groups
	GetGroup(ctx context.Context, id string) (core.BudgetGroup, error)
	ListGroups(ctx context.Context) ([]core.BudgetGroup, error)
	SaveGroup(ctx context.Context, g core.BudgetGroup) error

	// Sub-categories
	ListSubCategories(ctx context.Context) ([]core.SubCategory, error)
	SaveSubCategory(ctx context.Context, s core.SubCategory) error

	// Templates and month configs
	LoadPlan(ctx context.Context) (core.Plan, error)
	SaveTemplate(ctx context.Context, t core.BudgetTemplate) error
	SaveMonthConfig(ctx context.Context, c core.MonthConfig) error

	// Transactions
	ListTransactions(ctx context.Context, bucketID string) ([]core.Transaction, error)
	SaveTransaction(ctx context.Context, t core.Transaction) error
	ClearBucketReferences(ctx context.Context, bucketID string) error

	// Snapshot queue
	EnqueueSnapshot(ctx context.Context, entityKind, entityID, month string, revision int64) error
	PendingSnapshots(ctx context.Context, limit int) ([]PendingSnapshot, error)
	MarkSnapshotDone(ctx context.Context, id int64) error
	MarkSnapshotError(ctx context.Context, id int64) error

	// Revision counter, bumped on every plan mutation
	BumpRevision(ctx context.Context) (int64, error)
	Revision(ctx context.Context) (int64, error)

	Close() error
}
