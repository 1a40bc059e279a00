package normalize

import (
	"context"
	"sync"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// Serial normalizes records one at a time. The baseline implementation;
// Parallel must produce identical output.
type Serial struct {
	Classifier Classifier
}

var _ Normalizer = (*Serial)(nil)

func (n *Serial) Normalize(ctx context.Context, recs []record.ReviewRecord) []record.ReviewRecord {
	cls := n.Classifier
	if cls == nil {
		cls = NoopClassifier{}
	}
	out := make([]record.ReviewRecord, len(recs))
	copy(out, recs)
	for i := range out {
		if ctx.Err() != nil {
			break
		}
		clean(&out[i], cls)
	}
	return dedup(out)
}

// Parallel fans record cleaning out over a fixed worker count. Cleaning
// is per-record and order-independent, so workers write to their own
// indexes and deduplication runs once at the end, keeping the output
// byte-identical to Serial's.
type Parallel struct {
	Classifier Classifier
	Workers    int
}

var _ Normalizer = (*Parallel)(nil)

func (n *Parallel) Normalize(ctx context.Context, recs []record.ReviewRecord) []record.ReviewRecord {
	workers := n.Workers
	if workers <= 1 {
		s := Serial{Classifier: n.Classifier}
		return s.Normalize(ctx, recs)
	}
	cls := n.Classifier
	if cls == nil {
		cls = NoopClassifier{}
	}
	out := make([]record.ReviewRecord, len(recs))
	copy(out, recs)

	idx := make(chan int, len(out))
	for i := range out {
		idx <- i
	}
	close(idx)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				if ctx.Err() != nil {
					return
				}
				clean(&out[i], cls)
			}
		}()
	}
	wg.Wait()
	return dedup(out)
}

// NoopClassifier tags everything unknown. Stands in when language
// detection is disabled.
type NoopClassifier struct{}

func (NoopClassifier) Classify(string) string { return LanguageUnknown }
