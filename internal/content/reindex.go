package content

import (
	"context"
	"fmt"

	"github.com/01Taka/study-tracker/internal/ident"
)

// ReindexResult reports the outcome of one reindex pass.
type ReindexResult struct {
	// Sequence is the final ordered unit-version-id list for the owning
	// hierarchy (kept ids plus freshly generated ones, in display order).
	Sequence []string
	// NewIDs are the ids generated during this pass, in order.
	NewIDs []string
}

// Reindexer recomputes contiguous problem numbers over an ordered virtual
// unit list and persists the resulting record set. A unit only receives a
// new version identity when it is brand-new (empty UnitID) or when its
// first problem number no longer matches its sequence position; untouched
// units keep their id, preserving lastAttemptedAt and history linkage.
type Reindexer struct {
	store Store
	newID ident.Generator
}

func NewReindexer(store Store, newID ident.Generator) *Reindexer {
	if newID == nil {
		newID = ident.New
	}
	return &Reindexer{store: store, newID: newID}
}

// Reindex walks virtual in order, numbering sub-answers from start
// (normally 1; callers continuing numbering across hierarchies pass the
// next free number). Superseded ids are not removed from the store; they
// simply stop being referenced by the hierarchy.
func (r *Reindexer) Reindex(ctx context.Context, virtual []ProblemUnit, start int) (ReindexResult, error) {
	if start < 1 {
		start = 1
	}
	counter := start
	var res ReindexResult
	var changed []ProblemUnit

	for _, u := range virtual {
		if len(u.Problems) == 0 {
			return ReindexResult{}, fmt.Errorf("reindex: unit %q has no problems", u.UnitID)
		}
		isNew := u.UnitID == ""
		if isNew || u.Problems[0].ProblemNumber != counter {
			u.UnitID = r.newID()
			problems := make([]Problem, len(u.Problems))
			for i, p := range u.Problems {
				p.ProblemNumber = counter
				counter++
				problems[i] = p
			}
			u.Problems = problems
			changed = append(changed, u)
			res.Sequence = append(res.Sequence, u.UnitID)
			res.NewIDs = append(res.NewIDs, u.UnitID)
			continue
		}
		res.Sequence = append(res.Sequence, u.UnitID)
		counter += len(u.Problems)
	}

	if len(changed) > 0 {
		if err := r.store.PutUnits(ctx, changed); err != nil {
			return ReindexResult{}, err
		}
	}
	return res, nil
}
