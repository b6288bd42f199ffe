// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/source-scout/internal/store"
)

// Bucket names one terminal grouping of items.
type Bucket string

// Buckets an item can end in.
const (
	// BucketTop holds ranked items within the per-platform quota.
	BucketTop Bucket = "top"
	// BucketNoContent holds items whose detail content was empty.
	BucketNoContent Bucket = "no_content"
	// BucketLowRelevance holds items no relevance question accepted.
	BucketLowRelevance Bucket = "low_relevance"
	// BucketRejected holds relevant items ranked past the quota.
	BucketRejected Bucket = "rejected"
)

// Buckets lists every bucket in output order.
var Buckets = []Bucket{BucketTop, BucketNoContent, BucketLowRelevance, BucketRejected}

// Result is the bucketed outcome of a pipeline or coordinator run. Every
// item appears in exactly one bucket.
type Result struct {
	Top          *store.Store
	NoContent    *store.Store
	LowRelevance *store.Store
	Rejected     *store.Store
}

// NewResult returns a Result with four empty stores.
func NewResult() Result {
	return Result{
		Top:          store.New(),
		NoContent:    store.New(),
		LowRelevance: store.New(),
		Rejected:     store.New(),
	}
}

// Store returns the store for bucket b, or nil for an unknown bucket.
func (r Result) Store(b Bucket) *store.Store {
	switch b {
	case BucketTop:
		return r.Top
	case BucketNoContent:
		return r.NoContent
	case BucketLowRelevance:
		return r.LowRelevance
	case BucketRejected:
		return r.Rejected
	}
	return nil
}

// Merge folds other into r bucket by bucket; other wins on collisions.
func (r Result) Merge(other Result) {
	for _, b := range Buckets {
		r.Store(b).Merge(other.Store(b))
	}
}

// Counts returns the number of items per bucket.
func (r Result) Counts() map[Bucket]int {
	out := make(map[Bucket]int, len(Buckets))
	for _, b := range Buckets {
		if s := r.Store(b); s != nil {
			out[b] = s.Len()
		}
	}
	return out
}
