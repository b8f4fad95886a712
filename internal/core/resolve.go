package core

// TemporalEntry is a per-month materialized value with a deletion marker.
// BucketData and GroupData both satisfy it.
type TemporalEntry interface {
	Deleted() bool
}

// Resolution is the tagged result of a temporal lookup.
//
// Found is false when the query hit an explicit stop or no entry bears on
// the month at all; Stopped distinguishes the two. Inherited is true only
// when the value came from an earlier month.
type Resolution[E TemporalEntry] struct {
	Value     E
	Found     bool
	Inherited bool
	Stopped   bool
}

// ResolveEffective finds the effective value for query in a sparse month
// map. A month with no entry inherits from the nearest earlier entry
// ("set once, applies forever until changed"); an explicitly deleted entry
// stops the series and is never skipped.
func ResolveEffective[E TemporalEntry](monthly map[MonthKey]E, query MonthKey) Resolution[E] {
	if entry, ok := monthly[query]; ok {
		if entry.Deleted() {
			return Resolution[E]{Stopped: true}
		}
		return Resolution[E]{Value: entry, Found: true}
	}

	// Nearest materialized month strictly before the query. Lexicographic
	// comparison on MonthKey is chronological.
	var best MonthKey
	found := false
	for k := range monthly {
		if k < query && (!found || k > best) {
			best = k
			found = true
		}
	}
	if !found {
		return Resolution[E]{}
	}
	entry := monthly[best]
	if entry.Deleted() {
		return Resolution[E]{Stopped: true}
	}
	return Resolution[E]{Value: entry, Found: true, Inherited: true}
}

// LatestEntry returns the chronologically last materialized month, if any.
func LatestEntry[E TemporalEntry](monthly map[MonthKey]E) (MonthKey, bool) {
	var best MonthKey
	found := false
	for k := range monthly {
		if !found || k > best {
			best = k
			found = true
		}
	}
	return best, found
}

// ConfirmMonth pins the currently effective bucket data at the given month
// by materializing it with the deletion flag cleared. Confirming an already
// explicit month is a no-op, so the operation is idempotent. Returns false
// when there is nothing to confirm (no effective value).
func (b *Bucket) ConfirmMonth(month MonthKey) bool {
	r := ResolveEffective(b.MonthlyData, month)
	if !r.Found {
		return false
	}
	if !r.Inherited {
		return true
	}
	if b.MonthlyData == nil {
		b.MonthlyData = make(map[MonthKey]BucketData)
	}
	data := r.Value
	data.ExplicitlyDeleted = false
	b.MonthlyData[month] = data
	return true
}

// ConfirmMonth pins the currently effective group limit at the given month.
func (g *BudgetGroup) ConfirmMonth(month MonthKey) bool {
	r := ResolveEffective(g.MonthlyData, month)
	if !r.Found {
		return false
	}
	if !r.Inherited {
		return true
	}
	if g.MonthlyData == nil {
		g.MonthlyData = make(map[MonthKey]GroupData)
	}
	data := r.Value
	data.ExplicitlyDeleted = false
	g.MonthlyData[month] = data
	return true
}
