// Package imerge is the pairwise-merge engine: the grid of merge commits
// between two branches, the frontier algorithm that fills it with as few
// trial merges as possible, and the simplification step that turns a
// completed grid into a conventional history.
package imerge

import "github.com/imerge-tools/imerge/pkg/vcs"

// Flag is a provenance/status bitset for one MergeRecord. A cell is
// logically a sum type — Unknown | Known{oid, provenance, blocked} |
// BlockedOnly — represented here as an optional Oid plus this bitset, to
// keep Grid a plain dense 2D array of a comparable value type.
type Flag uint8

const (
	SavedAuto Flag = 1 << iota
	NewAuto
	SavedManual
	NewManual
	Blocked
)

const manualFlags = SavedManual | NewManual
const autoFlags = SavedAuto | NewAuto
const newFlags = NewAuto | NewManual
const savedFlags = SavedAuto | SavedManual

// MergeRecord is one grid cell: at most one commit, plus how it got there.
type MergeRecord struct {
	Oid   vcs.Oid
	Flags Flag
}

func (r MergeRecord) IsKnown() bool { return r.Oid != "" }

func (r MergeRecord) IsBlocked() bool { return r.Flags&Blocked != 0 }

func (r MergeRecord) IsManual() bool { return r.Flags&manualFlags != 0 }

func (r MergeRecord) IsAuto() bool { return r.Flags&autoFlags != 0 }

// RecordAuto sets oid as an automatically-discovered merge result.
// Recording at a previously-blocked cell clears BLOCKED.
func (r *MergeRecord) RecordAuto(oid vcs.Oid) {
	r.Oid = oid
	r.Flags |= NewAuto
	r.Flags &^= Blocked
}

// RecordManual sets oid as a user-resolved merge result. MANUAL supersedes
// AUTO, matching gitimerge.py's record_merge table: NEW_MANUAL clears
// NEW_AUTO here, and SAVED_AUTO is kept so that the save protocol can
// delete the stale auto ref once a MANUAL flag is present.
func (r *MergeRecord) RecordManual(oid vcs.Oid) {
	r.Oid = oid
	r.Flags |= NewManual
	r.Flags &^= NewAuto
	r.Flags &^= Blocked
}

// RecordBlocked marks the cell blocked without disturbing any existing
// provenance; BLOCKED is orthogonal to the other flags.
func (r *MergeRecord) RecordBlocked() {
	r.Flags |= Blocked
}
