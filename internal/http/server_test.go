package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"busta/internal/cache"
	"busta/internal/core"
	"busta/internal/services"
	"busta/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	costs := cache.NewLRUCache[core.Money](64, time.Minute)
	svc := services.NewPlanService(repo, nil, 1, costs)
	srv := NewServer(":0", svc)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, repo
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if w := doRequest(t, srv, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestResolveIntervalEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/interval?month=2024-02&payday=15", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody[intervalResponse](t, w)
	if resp.Start != "2024-01-15" || resp.End != "2024-02-14" {
		t.Errorf("interval = %s..%s, want 2024-01-15..2024-02-14", resp.Start, resp.End)
	}
	if resp.Days != 31 {
		t.Errorf("days = %d, want 31", resp.Days)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/interval?month=2024-13", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid month status = %d, want 422", w.Code)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/interval?month=2024-02&payday=40", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid payday status = %d, want 422", w.Code)
	}
}

func TestCreateBucketAndResolveCost(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{
		"name": "Rent",
		"type": "fixed",
		"month": "2024-01",
		"data": {"amount": "950.00"}
	}`
	w := doRequest(t, srv, http.MethodPost, "/api/buckets", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeBody[bucketResponse](t, w)
	if created.ID == "" || created.Name != "Rent" {
		t.Fatalf("created = %+v", created)
	}

	// March inherits January's value backward.
	w = doRequest(t, srv, http.MethodGet, "/api/buckets/"+created.ID+"/cost?month=2024-03", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cost status = %d, body %s", w.Code, w.Body.String())
	}
	cost := decodeBody[costResponse](t, w)
	if cost.AmountCents != 95000 {
		t.Errorf("amount_cents = %d, want 95000", cost.AmountCents)
	}
	if cost.Month != "2024-03" || cost.Payday != 1 {
		t.Errorf("cost meta = %+v", cost)
	}
}

func TestCreateBucketValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty name", `{"name": "", "type": "fixed"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"name": "X", "type": "weekly"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"name": "X", "type": "fixed", "month": "2024-01", "data": {"amount": "-5"}}`, http.StatusUnprocessableEntity},
		{"bad month", `{"name": "X", "type": "fixed", "month": "2024-1", "data": {"amount": "5"}}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"name": "X", "type": "fixed", "nope": 1}`, http.StatusBadRequest},
		{"not json", `name=X`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodPost, "/api/buckets", tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestBucketCostUnknownBucket(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/buckets/nope/cost?month=2024-01", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (body %s)", w.Code, w.Body.String())
	}
}

func TestEditConfirmDeleteBucketMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/buckets", `{"name": "Groceries", "type": "daily"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	id := decodeBody[bucketResponse](t, w).ID

	// Daily bucket: 1.35/day on weekdays.
	edit := `{"daily_amount": "1.35", "active_days": [1, 2, 3, 4, 5]}`
	if w = doRequest(t, srv, http.MethodPut, "/api/buckets/"+id+"/months/2024-01", edit); w.Code != http.StatusNoContent {
		t.Fatalf("edit status = %d, body %s", w.Code, w.Body.String())
	}

	// Payday 1 makes the 2024-02 interval Jan 1 - Jan 31: 23 weekdays.
	w = doRequest(t, srv, http.MethodGet, "/api/buckets/"+id+"/cost?month=2024-02", "")
	cost := decodeBody[costResponse](t, w)
	if want := int64(135 * 23); cost.AmountCents != want {
		t.Errorf("amount_cents = %d, want %d", cost.AmountCents, want)
	}

	if w = doRequest(t, srv, http.MethodPost, "/api/buckets/"+id+"/months/2024-03/confirm", ""); w.Code != http.StatusNoContent {
		t.Errorf("confirm status = %d", w.Code)
	}

	if w = doRequest(t, srv, http.MethodDelete, "/api/buckets/"+id+"?scope=this_month&month=2024-04", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete this_month status = %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(t, srv, http.MethodGet, "/api/buckets/"+id+"/cost?month=2024-04", "")
	if cost = decodeBody[costResponse](t, w); cost.AmountCents != 0 {
		t.Errorf("deleted month cost = %d, want 0", cost.AmountCents)
	}

	if w = doRequest(t, srv, http.MethodDelete, "/api/buckets/"+id+"?scope=bogus&month=2024-04", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bogus scope status = %d", w.Code)
	}

	if w = doRequest(t, srv, http.MethodDelete, "/api/buckets/"+id, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete all status = %d", w.Code)
	}
	if w = doRequest(t, srv, http.MethodGet, "/api/buckets/"+id+"/cost?month=2024-01", ""); w.Code != http.StatusNotFound {
		t.Errorf("cost after delete status = %d, want 404", w.Code)
	}
}

func TestGroupLimitAndMonthPlan(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/buckets", `{"name": "Rent", "type": "fixed", "month": "2024-01", "data": {"amount": "950"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create bucket status = %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodPost, "/api/groups", `{"name": "Living", "forecast_type": "fixed"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create group status = %d, body %s", w.Code, w.Body.String())
	}
	groupID := decodeBody[groupResponse](t, w).ID

	if w = doRequest(t, srv, http.MethodPut, "/api/groups/"+groupID+"/months/2024-01", `{"limit": "1500"}`); w.Code != http.StatusNoContent {
		t.Fatalf("set limit status = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-02/plan", "")
	if w.Code != http.StatusOK {
		t.Fatalf("plan status = %d, body %s", w.Code, w.Body.String())
	}
	plan := decodeBody[monthPlanResponse](t, w)
	if len(plan.Buckets) != 1 || plan.Buckets[0].AmountCents != 95000 {
		t.Errorf("plan buckets = %+v", plan.Buckets)
	}
	if len(plan.Groups) != 1 || plan.Groups[0].AmountCents != 150000 {
		t.Errorf("plan groups = %+v", plan.Groups)
	}
	if plan.Groups[0].Source != string(core.SourceExplicit) {
		t.Errorf("group source = %s, want explicit", plan.Groups[0].Source)
	}
	if plan.TotalCostCents != 95000 {
		t.Errorf("total = %d, want 95000", plan.TotalCostCents)
	}
}

func TestTemplateLifecycleEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/groups", `{"name": "Living"}`)
	groupID := decodeBody[groupResponse](t, w).ID

	body := fmt.Sprintf(`{"name": "Baseline", "is_default": true, "group_limits": {%q: "1000"}}`, groupID)
	w = doRequest(t, srv, http.MethodPost, "/api/templates", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create template status = %d, body %s", w.Code, w.Body.String())
	}
	tplID := decodeBody[templateResponse](t, w).ID

	// The default template flows into months without a config.
	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-05/plan", "")
	plan := decodeBody[monthPlanResponse](t, w)
	if len(plan.Groups) != 1 || plan.Groups[0].Source != string(core.SourceTemplate) {
		t.Fatalf("plan groups = %+v, want template-sourced limit", plan.Groups)
	}

	// Override wins over the template.
	if w = doRequest(t, srv, http.MethodPut, "/api/months/2024-05/overrides/groups/"+groupID, `{"amount": "1200"}`); w.Code != http.StatusNoContent {
		t.Fatalf("override status = %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-05/plan", "")
	plan = decodeBody[monthPlanResponse](t, w)
	if plan.Groups[0].AmountCents != 120000 || plan.Groups[0].Source != string(core.SourceOverride) {
		t.Errorf("overridden group = %+v", plan.Groups[0])
	}

	// Snapshot flattens the override into a new template.
	w = doRequest(t, srv, http.MethodPost, "/api/templates/snapshot", `{"name": "May as planned", "source_month": "2024-05"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("snapshot status = %d, body %s", w.Code, w.Body.String())
	}
	snapID := decodeBody[templateResponse](t, w).ID
	if snapID == tplID {
		t.Error("snapshot reused source template ID")
	}

	// Reset drops the override, falling back to the template baseline.
	if w = doRequest(t, srv, http.MethodPost, "/api/months/2024-05/reset", ""); w.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d", w.Code)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-05/plan", "")
	plan = decodeBody[monthPlanResponse](t, w)
	if plan.Groups[0].AmountCents != 100000 || plan.Groups[0].Source != string(core.SourceTemplate) {
		t.Errorf("group after reset = %+v", plan.Groups[0])
	}

	// Assigning the snapshot brings the flattened value back.
	if w = doRequest(t, srv, http.MethodPut, "/api/months/2024-05/template", fmt.Sprintf(`{"template_id": %q}`, snapID)); w.Code != http.StatusNoContent {
		t.Fatalf("assign status = %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-05/plan", "")
	plan = decodeBody[monthPlanResponse](t, w)
	if plan.Groups[0].AmountCents != 120000 {
		t.Errorf("group after assign = %+v", plan.Groups[0])
	}

	// Unknown template is a 404.
	if w = doRequest(t, srv, http.MethodPut, "/api/months/2024-05/template", `{"template_id": "nope"}`); w.Code != http.StatusNotFound {
		t.Errorf("assign unknown template status = %d, want 404", w.Code)
	}
}

func TestLockedMonthRejectsEdits(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/buckets", `{"name": "Rent", "type": "fixed"}`)
	id := decodeBody[bucketResponse](t, w).ID

	if w = doRequest(t, srv, http.MethodPost, "/api/months/2024-06/lock", `{"locked": true}`); w.Code != http.StatusNoContent {
		t.Fatalf("lock status = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, http.MethodPut, "/api/buckets/"+id+"/months/2024-06", `{"amount": "10"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("edit locked month status = %d, want 409", w.Code)
	}

	// Other months stay editable, and unlocking reopens the month.
	if w = doRequest(t, srv, http.MethodPut, "/api/buckets/"+id+"/months/2024-07", `{"amount": "10"}`); w.Code != http.StatusNoContent {
		t.Errorf("edit other month status = %d", w.Code)
	}
	if w = doRequest(t, srv, http.MethodPost, "/api/months/2024-06/lock", `{"locked": false}`); w.Code != http.StatusNoContent {
		t.Fatalf("unlock status = %d", w.Code)
	}
	if w = doRequest(t, srv, http.MethodPut, "/api/buckets/"+id+"/months/2024-06", `{"amount": "10"}`); w.Code != http.StatusNoContent {
		t.Errorf("edit after unlock status = %d", w.Code)
	}
}

func TestSubCategoryBudgetFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/subcategories", `{"name": "Coffee"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create subcategory status = %d, body %s", w.Code, w.Body.String())
	}
	subID := decodeBody[subCategoryResponse](t, w).ID

	body := fmt.Sprintf(`{"name": "Baseline", "is_default": true, "subcategory_budgets": {%q: "50"}}`, subID)
	if w = doRequest(t, srv, http.MethodPost, "/api/templates", body); w.Code != http.StatusCreated {
		t.Fatalf("create template status = %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-03/plan", "")
	plan := decodeBody[monthPlanResponse](t, w)
	if len(plan.SubCategories) != 1 || plan.SubCategories[0].AmountCents != 5000 {
		t.Fatalf("plan subcategories = %+v", plan.SubCategories)
	}
	if plan.SubCategories[0].Source != string(core.SourceTemplate) {
		t.Errorf("source = %s, want template", plan.SubCategories[0].Source)
	}

	if w = doRequest(t, srv, http.MethodPut, "/api/months/2024-03/overrides/subcategories/"+subID, `{"amount": "75"}`); w.Code != http.StatusNoContent {
		t.Fatalf("override status = %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(t, srv, http.MethodGet, "/api/months/2024-03/plan", "")
	plan = decodeBody[monthPlanResponse](t, w)
	if plan.SubCategories[0].AmountCents != 7500 || plan.SubCategories[0].Source != string(core.SourceOverride) {
		t.Errorf("overridden subcategory = %+v", plan.SubCategories[0])
	}
}

func TestGoalBucketConsumesTransactions(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{
		"name": "Holiday",
		"type": "goal",
		"target_amount": "1200",
		"start_saving_date": "2024-01-01",
		"target_date": "2024-12-01"
	}`
	w := doRequest(t, srv, http.MethodPost, "/api/buckets", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create goal status = %d, body %s", w.Code, w.Body.String())
	}
	id := decodeBody[bucketResponse](t, w).ID

	txn := fmt.Sprintf(`{"bucket_id": %q, "date": "2024-01-15", "amount": "-200"}`, id)
	w = doRequest(t, srv, http.MethodPost, "/api/transactions", txn)
	if w.Code != http.StatusCreated {
		t.Fatalf("record transaction status = %d, body %s", w.Code, w.Body.String())
	}
	if got := decodeBody[transactionResponse](t, w); got.AmountCents != -20000 {
		t.Errorf("amount_cents = %d, want -20000", got.AmountCents)
	}

	// 2024-03 with payday 1 covers Feb 1 - Feb 29. Contribution is
	// 1200/12 = 100; the January spend shrinks the remaining target to
	// 1000, so the goal reports 100 + 1000.
	w = doRequest(t, srv, http.MethodGet, "/api/buckets/"+id+"/cost?month=2024-03", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cost status = %d, body %s", w.Code, w.Body.String())
	}
	if cost := decodeBody[costResponse](t, w); cost.AmountCents != 110000 {
		t.Errorf("amount_cents = %d, want 110000", cost.AmountCents)
	}
}

func TestMutationRateLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	var limited bool
	for i := 0; i < requestsPerMinute+1; i++ {
		w := doRequest(t, srv, http.MethodPost, "/api/months/2030-01/lock", `{"locked": false}`)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("mutations were never rate limited")
	}

	// Reads are not throttled.
	if w := doRequest(t, srv, http.MethodGet, "/api/interval?month=2030-01", ""); w.Code != http.StatusOK {
		t.Errorf("read during throttling status = %d, want 200", w.Code)
	}
}
