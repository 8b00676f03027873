package vcs

import "context"

// Boundary is the (base, ancestry1, ancestry2) triple an incremental merge
// is initialized from: base is the best common ancestor of tip1 and tip2,
// and each ancestry is the chronological chain from base to that tip.
type Boundary struct {
	Base        Oid
	Ancestry1   []Oid
	Ancestry2   []Oid
	FirstParent bool
}

// ComputeBoundary finds the merge base of tip1 and tip2 and their linear
// ancestries from it. If firstParent is false and either ancestry contains
// a merge commit, it returns *NonlinearAncestryError so the caller (the
// `init`/`start` CLI commands) can retry with firstParent=true, per spec §7.
func ComputeBoundary(ctx context.Context, v Vcs, tip1, tip2 Oid, firstParent bool) (*Boundary, error) {
	if ok, err := v.IsAncestor(ctx, tip2, tip1); err != nil {
		return nil, err
	} else if ok && tip1 != tip2 {
		return nil, errNothingToDo(tip1, tip2)
	}
	base, err := v.MergeBaseBest(ctx, tip1, tip2)
	if err != nil {
		return nil, err
	}
	a1, err := v.LinearAncestry(ctx, base, tip1, firstParent)
	if err != nil {
		return nil, err
	}
	a2, err := v.LinearAncestry(ctx, base, tip2, firstParent)
	if err != nil {
		return nil, err
	}
	return &Boundary{Base: base, Ancestry1: a1, Ancestry2: a2, FirstParent: firstParent}, nil
}

// NothingToDoError means tip2 is already reachable from tip1: there is
// nothing for an incremental merge to contribute.
type NothingToDoError struct {
	Tip1, Tip2 Oid
}

func (e *NothingToDoError) Error() string {
	return "nothing to do: " + string(e.Tip2) + " is already an ancestor of " + string(e.Tip1)
}

func errNothingToDo(tip1, tip2 Oid) error {
	return &NothingToDoError{Tip1: tip1, Tip2: tip2}
}
