package classify

import (
	"context"
	"errors"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Merge runs several classifiers and unions their candidates. It fails only
// when every classifier failed.
type Merge []Classifier

// Classify implements Classifier
func (m Merge) Classify(ctx context.Context, batch Batch) (Candidates, error) {
	out := make(Candidates)
	var errs []error
	for _, c := range m {
		cands, err := c.Classify(ctx, batch)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cands.Each(func(t domain.IDType, v string) { out.Add(t, v) })
	}
	if len(errs) > 0 && len(errs) == len(m) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
