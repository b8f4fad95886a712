package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"busta/internal/amqp"
	"busta/internal/core"
	"busta/internal/sheets"
	"busta/internal/storage"
)

// maxConcurrentExports bounds the snapshot fan-out so a large backlog does
// not hammer the Sheets API.
const maxConcurrentExports = 4

// SnapshotWorker exports resolved plan values to the plan sheet. It is
// driven by AMQP change messages, with the pending-snapshot queue as a
// backup for lost messages.
type SnapshotWorker struct {
	repo      storage.Repository
	writer    sheets.PlanWriter
	payday    int
	batchSize int
}

func NewSnapshotWorker(repo storage.Repository, writer sheets.PlanWriter, payday, batchSize int) *SnapshotWorker {
	return &SnapshotWorker{
		repo:      repo,
		writer:    writer,
		payday:    payday,
		batchSize: batchSize,
	}
}

// HandlePlanChanged processes a single plan change message from AMQP.
func (w *SnapshotWorker) HandlePlanChanged(ctx context.Context, msg *amqp.PlanChangedMessage) error {
	slog.InfoContext(ctx, "Processing plan change",
		"entity_kind", msg.EntityKind,
		"entity_id", msg.EntityID,
		"revision", msg.Revision)

	rows, err := w.rowsFor(ctx, msg.EntityKind, msg.EntityID, msg.Month, msg.Revision)
	if err != nil {
		return fmt.Errorf("resolve rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := w.writer.WritePlanRows(ctx, rows); err != nil {
		return fmt.Errorf("write plan rows: %w", err)
	}
	return nil
}

// ProcessPendingSnapshots drains a batch of queued plan changes. This is a
// backup mechanism in case AMQP messages are lost.
func (w *SnapshotWorker) ProcessPendingSnapshots(ctx context.Context) error {
	return w.drainPending(ctx, w.batchSize)
}

// StartupCheck drains a larger backlog at worker startup, recovering from
// missed messages or worker downtime.
func (w *SnapshotWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.repo.PendingSnapshots(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending snapshots for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending snapshots found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending snapshots on startup, processing...", "count", len(pending))
	return w.export(ctx, pending)
}

func (w *SnapshotWorker) drainPending(ctx context.Context, limit int) error {
	pending, err := w.repo.PendingSnapshots(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending snapshots: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending snapshots", "count", len(pending))
	return w.export(ctx, pending)
}

// export resolves and writes each pending snapshot, bounded fan-out.
func (w *SnapshotWorker) export(ctx context.Context, pending []storage.PendingSnapshot) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentExports)

	for _, p := range pending {
		p := p
		g.Go(func() error {
			rows, err := w.rowsFor(ctx, p.EntityKind, p.EntityID, p.Month, p.Revision)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to resolve snapshot rows",
					"id", p.ID, "entity_kind", p.EntityKind, "entity_id", p.EntityID, "error", err)
				if markErr := w.repo.MarkSnapshotError(ctx, p.ID); markErr != nil {
					slog.ErrorContext(ctx, "Failed to mark snapshot error", "id", p.ID, "error", markErr)
				}
				return nil
			}

			if len(rows) > 0 {
				if err := w.writer.WritePlanRows(ctx, rows); err != nil {
					slog.ErrorContext(ctx, "Failed to export snapshot",
						"id", p.ID, "entity_id", p.EntityID, "error", err)
					if markErr := w.repo.MarkSnapshotError(ctx, p.ID); markErr != nil {
						slog.ErrorContext(ctx, "Failed to mark snapshot error", "id", p.ID, "error", markErr)
					}
					return nil
				}
			}

			if err := w.repo.MarkSnapshotDone(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark snapshot done", "id", p.ID, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// rowsFor resolves the effective plan values a change touches. Bucket,
// group and sub-category changes produce one row; template and month-config
// changes re-export the whole affected month.
func (w *SnapshotWorker) rowsFor(ctx context.Context, entityKind, entityID, monthStr string, revision int64) ([]sheets.PlanRow, error) {
	month := core.MonthKey(monthStr)
	if !month.Valid() {
		month = core.MonthKeyOf(time.Now())
	}

	plan, err := w.repo.LoadPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}

	switch entityKind {
	case amqp.EntityBucket:
		b, err := w.repo.GetBucket(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return w.bucketRows(ctx, b, plan, month, revision)

	case amqp.EntityGroup:
		g, err := w.repo.GetGroup(ctx, entityID)
		if err != nil {
			return nil, err
		}
		layered := plan.GroupLimit(g, month)
		if layered.Source == core.SourceNone {
			return nil, nil
		}
		return []sheets.PlanRow{groupRow(g, month, layered, revision)}, nil

	case amqp.EntitySubCategory:
		layered := plan.SubCategoryBudget(entityID, month)
		if layered.Source == core.SourceNone {
			return nil, nil
		}
		return []sheets.PlanRow{{
			Month:       string(month),
			EntityKind:  amqp.EntitySubCategory,
			EntityID:    entityID,
			AmountCents: layered.Amount.Cents,
			Source:      string(layered.Source),
			Revision:    revision,
		}}, nil

	default:
		// Template and month-config changes touch every entity of the month.
		return w.monthRows(ctx, plan, month, revision)
	}
}

func (w *SnapshotWorker) bucketRows(ctx context.Context, b core.Bucket, plan core.Plan, month core.MonthKey, revision int64) ([]sheets.PlanRow, error) {
	txns, err := w.repo.ListTransactions(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	cost, err := core.BucketCost(b, month, core.CostInputs{
		Payday:       w.payday,
		Plan:         plan,
		Transactions: txns,
	})
	if err != nil {
		return nil, fmt.Errorf("cost bucket %s: %w", b.ID, err)
	}
	_, source := plan.BucketValue(b, month)
	return []sheets.PlanRow{{
		Month:       string(month),
		EntityKind:  amqp.EntityBucket,
		EntityID:    b.ID,
		Name:        b.Name,
		AmountCents: cost.Cents,
		Source:      string(source),
		Revision:    revision,
	}}, nil
}

func (w *SnapshotWorker) monthRows(ctx context.Context, plan core.Plan, month core.MonthKey, revision int64) ([]sheets.PlanRow, error) {
	buckets, err := w.repo.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := w.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	var rows []sheets.PlanRow
	for _, b := range buckets {
		if b.ArchivedAsOf(month) {
			continue
		}
		bucketRows, err := w.bucketRows(ctx, b, plan, month, revision)
		if err != nil {
			return nil, err
		}
		rows = append(rows, bucketRows...)
	}
	for _, g := range groups {
		layered := plan.GroupLimit(g, month)
		if layered.Source == core.SourceNone {
			continue
		}
		rows = append(rows, groupRow(g, month, layered, revision))
	}
	return rows, nil
}

func groupRow(g core.BudgetGroup, month core.MonthKey, layered core.Layered, revision int64) sheets.PlanRow {
	return sheets.PlanRow{
		Month:       string(month),
		EntityKind:  amqp.EntityGroup,
		EntityID:    g.ID,
		Name:        g.Name,
		AmountCents: layered.Amount.Cents,
		Source:      string(layered.Source),
		Revision:    revision,
	}
}
