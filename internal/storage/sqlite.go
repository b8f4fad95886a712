package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"busta/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetBucket returns a bucket with its full month series loaded.
func (r *SQLiteRepository) GetBucket(ctx context.Context, id string) (core.Bucket, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, type, is_savings, payment_source,
		       COALESCE(budget_group_id, ''), target_amount_cents,
		       target_date, start_saving_date, event_start_date, event_end_date, archived_date
		FROM buckets WHERE id = ?`, id)

	b, err := scanBucket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Bucket{}, fmt.Errorf("bucket %s: %w", id, ErrNotFound)
		}
		return core.Bucket{}, fmt.Errorf("get bucket: %w", err)
	}

	if err := r.loadBucketMonths(ctx, &b); err != nil {
		return core.Bucket{}, err
	}
	return b, nil
}

// ListBuckets returns all buckets with their month series loaded.
func (r *SQLiteRepository) ListBuckets(ctx context.Context) ([]core.Bucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, name, type, is_savings, payment_source,
		       COALESCE(budget_group_id, ''), target_amount_cents,
		       target_date, start_saving_date, event_start_date, event_end_date, archived_date
		FROM buckets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []core.Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}

	for i := range buckets {
		if err := r.loadBucketMonths(ctx, &buckets[i]); err != nil {
			return nil, err
		}
	}
	return buckets, nil
}

func (r *SQLiteRepository) loadBucketMonths(ctx context.Context, b *core.Bucket) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, amount_cents, daily_amount_cents, active_days, explicitly_deleted
		FROM bucket_monthly_data WHERE bucket_id = ?`, b.ID)
	if err != nil {
		return fmt.Errorf("load bucket months: %w", err)
	}
	defer rows.Close()

	b.MonthlyData = make(map[core.MonthKey]core.BucketData)
	for rows.Next() {
		var month string
		var amount, daily, activeDays int64
		var deleted bool
		if err := rows.Scan(&month, &amount, &daily, &activeDays, &deleted); err != nil {
			return fmt.Errorf("scan bucket month: %w", err)
		}
		b.MonthlyData[core.MonthKey(month)] = core.BucketData{
			Amount:            core.Money{Cents: amount},
			DailyAmount:       core.Money{Cents: daily},
			ActiveDays:        core.WeekdaySet(activeDays),
			ExplicitlyDeleted: deleted,
		}
	}
	return rows.Err()
}

// SaveBucket upserts the bucket row and replaces its month series.
func (r *SQLiteRepository) SaveBucket(ctx context.Context, b core.Bucket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO buckets (id, account_id, name, type, is_savings, payment_source,
			budget_group_id, target_amount_cents, target_date, start_saving_date,
			event_start_date, event_end_date, archived_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			name = excluded.name,
			type = excluded.type,
			is_savings = excluded.is_savings,
			payment_source = excluded.payment_source,
			budget_group_id = excluded.budget_group_id,
			target_amount_cents = excluded.target_amount_cents,
			target_date = excluded.target_date,
			start_saving_date = excluded.start_saving_date,
			event_start_date = excluded.event_start_date,
			event_end_date = excluded.event_end_date,
			archived_date = excluded.archived_date`,
		b.ID, b.AccountID, b.Name, string(b.Type), b.IsSavings, string(b.PaymentSource),
		b.BudgetGroupID, b.TargetAmount.Cents, dateOrNil(b.TargetDate), dateOrNil(b.StartSavingDate),
		dateOrNil(b.EventStartDate), dateOrNil(b.EventEndDate), dateOrNil(b.ArchivedDate))
	if err != nil {
		return fmt.Errorf("upsert bucket: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bucket_monthly_data WHERE bucket_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear bucket months: %w", err)
	}
	for month, data := range b.MonthlyData {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bucket_monthly_data (bucket_id, month, amount_cents, daily_amount_cents, active_days, explicitly_deleted)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, string(month), data.Amount.Cents, data.DailyAmount.Cents, int64(data.ActiveDays), data.ExplicitlyDeleted)
		if err != nil {
			return fmt.Errorf("insert bucket month %s: %w", month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bucket: %w", err)
	}

	slog.InfoContext(ctx, "Bucket saved", "bucket_id", b.ID, "months", len(b.MonthlyData))
	return nil
}

// DeleteBucket removes the bucket and its month series.
func (r *SQLiteRepository) DeleteBucket(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM buckets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bucket %s: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Bucket deleted", "bucket_id", id)
	return nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id string) (core.BudgetGroup, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, forecast_type, is_catch_all, linked_bucket_ids
		FROM budget_groups WHERE id = ?`, id)

	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BudgetGroup{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
		}
		return core.BudgetGroup{}, fmt.Errorf("get group: %w", err)
	}

	if err := r.loadGroupMonths(ctx, &g); err != nil {
		return core.BudgetGroup{}, err
	}
	return g, nil
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.BudgetGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, forecast_type, is_catch_all, linked_bucket_ids
		FROM budget_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []core.BudgetGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	for i := range groups {
		if err := r.loadGroupMonths(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *SQLiteRepository) loadGroupMonths(ctx context.Context, g *core.BudgetGroup) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, limit_cents, explicitly_deleted
		FROM group_monthly_data WHERE group_id = ?`, g.ID)
	if err != nil {
		return fmt.Errorf("load group months: %w", err)
	}
	defer rows.Close()

	g.MonthlyData = make(map[core.MonthKey]core.GroupData)
	for rows.Next() {
		var month string
		var limit int64
		var deleted bool
		if err := rows.Scan(&month, &limit, &deleted); err != nil {
			return fmt.Errorf("scan group month: %w", err)
		}
		g.MonthlyData[core.MonthKey(month)] = core.GroupData{
			Limit:             core.Money{Cents: limit},
			ExplicitlyDeleted: deleted,
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) SaveGroup(ctx context.Context, g core.BudgetGroup) error {
	linked, err := json.Marshal(g.LinkedBucketIDs)
	if err != nil {
		return fmt.Errorf("marshal linked buckets: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budget_groups (id, name, forecast_type, is_catch_all, linked_bucket_ids)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			forecast_type = excluded.forecast_type,
			is_catch_all = excluded.is_catch_all,
			linked_bucket_ids = excluded.linked_bucket_ids`,
		g.ID, g.Name, string(g.ForecastType), g.IsCatchAll, string(linked))
	if err != nil {
		return fmt.Errorf("upsert group: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_monthly_data WHERE group_id = ?`, g.ID); err != nil {
		return fmt.Errorf("clear group months: %w", err)
	}
	for month, data := range g.MonthlyData {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO group_monthly_data (group_id, month, limit_cents, explicitly_deleted)
			VALUES (?, ?, ?, ?)`,
			g.ID, string(month), data.Limit.Cents, data.ExplicitlyDeleted)
		if err != nil {
			return fmt.Errorf("insert group month %s: %w", month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}

	slog.InfoContext(ctx, "Budget group saved", "group_id", g.ID, "months", len(g.MonthlyData))
	return nil
}

func (r *SQLiteRepository) ListSubCategories(ctx context.Context) ([]core.SubCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, main_category_id, COALESCE(budget_group_id, ''), is_savings
		FROM subcategories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var subs []core.SubCategory
	for rows.Next() {
		var s core.SubCategory
		if err := rows.Scan(&s.ID, &s.Name, &s.MainCategoryID, &s.BudgetGroupID, &s.IsSavings); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SQLiteRepository) SaveSubCategory(ctx context.Context, s core.SubCategory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcategories (id, name, main_category_id, budget_group_id, is_savings)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			main_category_id = excluded.main_category_id,
			budget_group_id = excluded.budget_group_id,
			is_savings = excluded.is_savings`,
		s.ID, s.Name, s.MainCategoryID, s.BudgetGroupID, s.IsSavings)
	if err != nil {
		return fmt.Errorf("upsert subcategory: %w", err)
	}
	return nil
}

// LoadPlan assembles every template and month config into a core.Plan.
func (r *SQLiteRepository) LoadPlan(ctx context.Context) (core.Plan, error) {
	plan := core.Plan{
		Templates:    make(map[string]core.BudgetTemplate),
		MonthConfigs: make(map[core.MonthKey]core.MonthConfig),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_default FROM templates`)
	if err != nil {
		return plan, fmt.Errorf("list templates: %w", err)
	}
	for rows.Next() {
		var t core.BudgetTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.IsDefault); err != nil {
			rows.Close()
			return plan, fmt.Errorf("scan template: %w", err)
		}
		t.GroupLimits = make(map[string]core.Money)
		t.SubCategoryBudgets = make(map[string]core.Money)
		t.BucketValues = make(map[string]core.BucketData)
		plan.Templates[t.ID] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return plan, fmt.Errorf("iterate templates: %w", err)
	}

	if err := r.loadTemplateValues(ctx, plan.Templates); err != nil {
		return plan, err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT month, template_id, locked FROM month_configs`)
	if err != nil {
		return plan, fmt.Errorf("list month configs: %w", err)
	}
	for rows.Next() {
		var c core.MonthConfig
		var month string
		if err := rows.Scan(&month, &c.TemplateID, &c.Locked); err != nil {
			rows.Close()
			return plan, fmt.Errorf("scan month config: %w", err)
		}
		c.Month = core.MonthKey(month)
		plan.MonthConfigs[c.Month] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return plan, fmt.Errorf("iterate month configs: %w", err)
	}

	if err := r.loadMonthOverrides(ctx, plan.MonthConfigs); err != nil {
		return plan, err
	}

	return plan, nil
}

func (r *SQLiteRepository) loadTemplateValues(ctx context.Context, templates map[string]core.BudgetTemplate) error {
	rows, err := r.db.QueryContext(ctx, `SELECT template_id, group_id, limit_cents FROM template_group_limits`)
	if err != nil {
		return fmt.Errorf("load template group limits: %w", err)
	}
	for rows.Next() {
		var tplID, groupID string
		var cents int64
		if err := rows.Scan(&tplID, &groupID, &cents); err != nil {
			rows.Close()
			return fmt.Errorf("scan template group limit: %w", err)
		}
		if t, ok := templates[tplID]; ok {
			t.GroupLimits[groupID] = core.Money{Cents: cents}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT template_id, subcategory_id, amount_cents FROM template_subcategory_budgets`)
	if err != nil {
		return fmt.Errorf("load template subcategory budgets: %w", err)
	}
	for rows.Next() {
		var tplID, subID string
		var cents int64
		if err := rows.Scan(&tplID, &subID, &cents); err != nil {
			rows.Close()
			return fmt.Errorf("scan template subcategory budget: %w", err)
		}
		if t, ok := templates[tplID]; ok {
			t.SubCategoryBudgets[subID] = core.Money{Cents: cents}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT template_id, bucket_id, amount_cents, daily_amount_cents, active_days, explicitly_deleted
		FROM template_bucket_values`)
	if err != nil {
		return fmt.Errorf("load template bucket values: %w", err)
	}
	for rows.Next() {
		var tplID, bucketID string
		var amount, daily, activeDays int64
		var deleted bool
		if err := rows.Scan(&tplID, &bucketID, &amount, &daily, &activeDays, &deleted); err != nil {
			rows.Close()
			return fmt.Errorf("scan template bucket value: %w", err)
		}
		if t, ok := templates[tplID]; ok {
			t.BucketValues[bucketID] = core.BucketData{
				Amount:            core.Money{Cents: amount},
				DailyAmount:       core.Money{Cents: daily},
				ActiveDays:        core.WeekdaySet(activeDays),
				ExplicitlyDeleted: deleted,
			}
		}
	}
	rows.Close()
	return rows.Err()
}

func (r *SQLiteRepository) loadMonthOverrides(ctx context.Context, configs map[core.MonthKey]core.MonthConfig) error {
	rows, err := r.db.QueryContext(ctx, `SELECT month, group_id, limit_cents FROM month_group_overrides`)
	if err != nil {
		return fmt.Errorf("load month group overrides: %w", err)
	}
	for rows.Next() {
		var month, groupID string
		var cents int64
		if err := rows.Scan(&month, &groupID, &cents); err != nil {
			rows.Close()
			return fmt.Errorf("scan month group override: %w", err)
		}
		if c, ok := configs[core.MonthKey(month)]; ok {
			if c.GroupOverrides == nil {
				c.GroupOverrides = make(map[string]core.Money)
			}
			c.GroupOverrides[groupID] = core.Money{Cents: cents}
			configs[c.Month] = c
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT month, subcategory_id, amount_cents FROM month_subcategory_overrides`)
	if err != nil {
		return fmt.Errorf("load month subcategory overrides: %w", err)
	}
	for rows.Next() {
		var month, subID string
		var cents int64
		if err := rows.Scan(&month, &subID, &cents); err != nil {
			rows.Close()
			return fmt.Errorf("scan month subcategory override: %w", err)
		}
		if c, ok := configs[core.MonthKey(month)]; ok {
			if c.SubCategoryOverrides == nil {
				c.SubCategoryOverrides = make(map[string]core.Money)
			}
			c.SubCategoryOverrides[subID] = core.Money{Cents: cents}
			configs[c.Month] = c
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT month, bucket_id, amount_cents, daily_amount_cents, active_days, explicitly_deleted
		FROM month_bucket_overrides`)
	if err != nil {
		return fmt.Errorf("load month bucket overrides: %w", err)
	}
	for rows.Next() {
		var month, bucketID string
		var amount, daily, activeDays int64
		var deleted bool
		if err := rows.Scan(&month, &bucketID, &amount, &daily, &activeDays, &deleted); err != nil {
			rows.Close()
			return fmt.Errorf("scan month bucket override: %w", err)
		}
		if c, ok := configs[core.MonthKey(month)]; ok {
			if c.BucketOverrides == nil {
				c.BucketOverrides = make(map[string]core.BucketData)
			}
			c.BucketOverrides[bucketID] = core.BucketData{
				Amount:            core.Money{Cents: amount},
				DailyAmount:       core.Money{Cents: daily},
				ActiveDays:        core.WeekdaySet(activeDays),
				ExplicitlyDeleted: deleted,
			}
			configs[c.Month] = c
		}
	}
	rows.Close()
	return rows.Err()
}

// SaveTemplate upserts the template row and replaces its values.
func (r *SQLiteRepository) SaveTemplate(ctx context.Context, t core.BudgetTemplate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Only one template can be the default.
	if t.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE templates SET is_default = 0 WHERE id != ?`, t.ID); err != nil {
			return fmt.Errorf("clear default flag: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO templates (id, name, is_default) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_default = excluded.is_default`,
		t.ID, t.Name, t.IsDefault)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}

	for _, table := range []string{"template_group_limits", "template_subcategory_budgets", "template_bucket_values"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE template_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for groupID, limit := range t.GroupLimits {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO template_group_limits (template_id, group_id, limit_cents) VALUES (?, ?, ?)`,
			t.ID, groupID, limit.Cents); err != nil {
			return fmt.Errorf("insert template group limit: %w", err)
		}
	}
	for subID, amount := range t.SubCategoryBudgets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO template_subcategory_budgets (template_id, subcategory_id, amount_cents) VALUES (?, ?, ?)`,
			t.ID, subID, amount.Cents); err != nil {
			return fmt.Errorf("insert template subcategory budget: %w", err)
		}
	}
	for bucketID, data := range t.BucketValues {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO template_bucket_values (template_id, bucket_id, amount_cents, daily_amount_cents, active_days, explicitly_deleted)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, bucketID, data.Amount.Cents, data.DailyAmount.Cents, int64(data.ActiveDays), data.ExplicitlyDeleted); err != nil {
			return fmt.Errorf("insert template bucket value: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template: %w", err)
	}

	slog.InfoContext(ctx, "Template saved", "template_id", t.ID, "is_default", t.IsDefault)
	return nil
}

// SaveMonthConfig upserts the config row and replaces its overrides.
func (r *SQLiteRepository) SaveMonthConfig(ctx context.Context, c core.MonthConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO month_configs (month, template_id, locked) VALUES (?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET template_id = excluded.template_id, locked = excluded.locked`,
		string(c.Month), c.TemplateID, c.Locked)
	if err != nil {
		return fmt.Errorf("upsert month config: %w", err)
	}

	for _, table := range []string{"month_group_overrides", "month_subcategory_overrides", "month_bucket_overrides"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE month = ?`, string(c.Month)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for groupID, limit := range c.GroupOverrides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO month_group_overrides (month, group_id, limit_cents) VALUES (?, ?, ?)`,
			string(c.Month), groupID, limit.Cents); err != nil {
			return fmt.Errorf("insert month group override: %w", err)
		}
	}
	for subID, amount := range c.SubCategoryOverrides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO month_subcategory_overrides (month, subcategory_id, amount_cents) VALUES (?, ?, ?)`,
			string(c.Month), subID, amount.Cents); err != nil {
			return fmt.Errorf("insert month subcategory override: %w", err)
		}
	}
	for bucketID, data := range c.BucketOverrides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO month_bucket_overrides (month, bucket_id, amount_cents, daily_amount_cents, active_days, explicitly_deleted)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(c.Month), bucketID, data.Amount.Cents, data.DailyAmount.Cents, int64(data.ActiveDays), data.ExplicitlyDeleted); err != nil {
			return fmt.Errorf("insert month bucket override: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit month config: %w", err)
	}

	slog.InfoContext(ctx, "Month config saved", "month", string(c.Month), "template_id", c.TemplateID)
	return nil
}

// ListTransactions returns transactions for one bucket, or all when bucketID
// is empty.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, bucketID string) ([]core.Transaction, error) {
	query := `SELECT id, bucket_id, date, amount_cents FROM transactions ORDER BY date`
	args := []any{}
	if bucketID != "" {
		query = `SELECT id, bucket_id, date, amount_cents FROM transactions WHERE bucket_id = ? ORDER BY date`
		args = append(args, bucketID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		var cents int64
		if err := rows.Scan(&t.ID, &t.BucketID, &date, &cents); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		t.Amount = core.Money{Cents: cents}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, bucket_id, date, amount_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bucket_id = excluded.bucket_id,
			date = excluded.date,
			amount_cents = excluded.amount_cents`,
		t.ID, t.BucketID, t.Date.Format(dateLayout), t.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// ClearBucketReferences unlinks all transactions from a deleted bucket.
func (r *SQLiteRepository) ClearBucketReferences(ctx context.Context, bucketID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET bucket_id = '' WHERE bucket_id = ?`, bucketID)
	if err != nil {
		return fmt.Errorf("clear bucket references: %w", err)
	}

	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Bucket references cleared", "bucket_id", bucketID, "transactions", n)
	return nil
}

func (r *SQLiteRepository) EnqueueSnapshot(ctx context.Context, entityKind, entityID, month string, revision int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_snapshots (entity_kind, entity_id, month, revision) VALUES (?, ?, ?, ?)`,
		entityKind, entityID, month, revision)
	if err != nil {
		return fmt.Errorf("enqueue snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PendingSnapshots(ctx context.Context, limit int) ([]PendingSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, month, revision, created_at
		FROM pending_snapshots WHERE status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending snapshots: %w", err)
	}
	defer rows.Close()

	var pending []PendingSnapshot
	for rows.Next() {
		var p PendingSnapshot
		var createdAt string
		if err := rows.Scan(&p.ID, &p.EntityKind, &p.EntityID, &p.Month, &p.Revision, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending snapshot: %w", err)
		}
		p.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *SQLiteRepository) MarkSnapshotDone(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_snapshots SET status = 'done', processed_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark snapshot done: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSnapshotError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_snapshots SET status = 'error', processed_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark snapshot error: %w", err)
	}

	slog.WarnContext(ctx, "Snapshot marked with error", "id", id)
	return nil
}

// BumpRevision increments and returns the plan revision counter.
func (r *SQLiteRepository) BumpRevision(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE meta SET value = value + 1 WHERE key = 'plan_revision' RETURNING value`)

	var rev int64
	if err := row.Scan(&rev); err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	return rev, nil
}

func (r *SQLiteRepository) Revision(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'plan_revision'`)

	var rev int64
	if err := row.Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBucket(row rowScanner) (core.Bucket, error) {
	var b core.Bucket
	var bType, paySource string
	var targetCents int64
	var targetDate, startSaving, eventStart, eventEnd, archived sql.NullString

	err := row.Scan(&b.ID, &b.AccountID, &b.Name, &bType, &b.IsSavings, &paySource,
		&b.BudgetGroupID, &targetCents,
		&targetDate, &startSaving, &eventStart, &eventEnd, &archived)
	if err != nil {
		return b, err
	}

	b.Type = core.BucketType(bType)
	b.PaymentSource = core.PaymentSource(paySource)
	b.TargetAmount = core.Money{Cents: targetCents}

	if b.TargetDate, err = parseDate(targetDate); err != nil {
		return b, err
	}
	if b.StartSavingDate, err = parseDate(startSaving); err != nil {
		return b, err
	}
	if b.EventStartDate, err = parseDate(eventStart); err != nil {
		return b, err
	}
	if b.EventEndDate, err = parseDate(eventEnd); err != nil {
		return b, err
	}
	if b.ArchivedDate, err = parseDate(archived); err != nil {
		return b, err
	}
	return b, nil
}

func scanGroup(row rowScanner) (core.BudgetGroup, error) {
	var g core.BudgetGroup
	var forecast, linked string
	if err := row.Scan(&g.ID, &g.Name, &forecast, &g.IsCatchAll, &linked); err != nil {
		return g, err
	}
	g.ForecastType = core.ForecastType(forecast)
	if err := json.Unmarshal([]byte(linked), &g.LinkedBucketIDs); err != nil {
		return g, fmt.Errorf("unmarshal linked buckets: %w", err)
	}
	return g, nil
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s.String, err)
	}
	return &t, nil
}
