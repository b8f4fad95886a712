package core

import (
	"errors"
	"fmt"
)

// DeletionScope says how far a bucket removal propagates.
type DeletionScope string

const (
	// DeleteAll removes the bucket entity entirely. Terminal; handled by
	// the caller, which must also clear bucket references on transactions.
	DeleteAll DeletionScope = "all"
	// DeleteThisMonth stops the bucket for exactly one month.
	DeleteThisMonth DeletionScope = "this_month"
	// DeleteThisAndFuture cuts the series off from the month onward.
	DeleteThisAndFuture DeletionScope = "this_and_future"
)

var ErrInvalidDeletionScope = errors.New("invalid deletion scope")

// ApplyDeletionScope mutates a copy of the bucket's month map for a user
// delete action and returns the updated bucket. DeleteAll is not handled
// here: removing the entity and unlinking its transactions is storage
// work, not month-map work.
//
// DeleteThisMonth materializes the month as a deleted zero entry and, when
// the next month has no entry of its own, writes a clone of the
// pre-deletion effective data there. Without that fence post the backward
// scan from any later month would land on the deleted entry and read the
// series as stopped forever.
//
// DeleteThisAndFuture materializes the month as deleted and marks every
// already-materialized later entry deleted with zeroed amounts. No fence
// post is written; the series stays cut off until a new entry is added.
func ApplyDeletionScope(b Bucket, month MonthKey, scope DeletionScope) (Bucket, error) {
	if !month.Valid() {
		return b, fmt.Errorf("%w: %q", ErrInvalidMonthKey, month)
	}

	out := b.Clone()
	if out.MonthlyData == nil {
		out.MonthlyData = make(map[MonthKey]BucketData)
	}

	switch scope {
	case DeleteThisMonth:
		pre := ResolveEffective(out.MonthlyData, month)
		out.MonthlyData[month] = BucketData{ExplicitlyDeleted: true}
		next := month.Next()
		if _, exists := out.MonthlyData[next]; !exists && pre.Found {
			fence := pre.Value
			fence.ExplicitlyDeleted = false
			out.MonthlyData[next] = fence
		}
		return out, nil

	case DeleteThisAndFuture:
		out.MonthlyData[month] = BucketData{ExplicitlyDeleted: true}
		for k, data := range out.MonthlyData {
			if k > month {
				zeroed := data.Zeroed()
				zeroed.ExplicitlyDeleted = true
				out.MonthlyData[k] = zeroed
			}
		}
		return out, nil

	case DeleteAll:
		return out, fmt.Errorf("%w: %s is handled by the caller", ErrInvalidDeletionScope, scope)

	default:
		return out, fmt.Errorf("%w: %q", ErrInvalidDeletionScope, scope)
	}
}

// UnlinkBucket clears the bucket reference on every transaction pointing
// at the given bucket, for the terminal DeleteAll scope.
func UnlinkBucket(txns []Transaction, bucketID string) []Transaction {
	out := make([]Transaction, len(txns))
	for i, t := range txns {
		if t.BucketID == bucketID {
			t.BucketID = ""
		}
		out[i] = t
	}
	return out
}
