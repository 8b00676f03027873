package imerge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// CurrentVersion is the on-disk state-blob version this port writes.
// Readers accept any 1.x with x <= currentMinor (spec §6).
const (
	currentMajor   = 1
	currentMinor   = 3
	currentPatch   = 0
	CurrentVersion = "1.3.0"
)

// Goal values, matching spec §3/§4.8 verbatim.
const (
	GoalFull                 = "full"
	GoalRebase                = "rebase"
	GoalRebaseWithHistory     = "rebase-with-history"
	GoalBorder                = "border"
	GoalBorderWithHistory     = "border-with-history"
	GoalBorderWithHistory2    = "border-with-history2"
	GoalMerge                 = "merge"
	GoalDrop                  = "drop"
	GoalRevert                = "revert"
)

// MergeState owns the grid and the metadata persisted alongside it.
type MergeState struct {
	Name        string
	Tip1, Tip2  vcs.Oid
	Goal        string
	GoalOpts    map[string]any
	Manual      bool
	Branch      string
	FirstParent bool

	Block *Block
}

func namespace(name string) string { return "refs/imerge/" + name }

func stateRefName(name string) string { return namespace(name) + "/state" }

func cellRefName(name string, manual bool, i1, i2 int) string {
	kind := "auto"
	if manual {
		kind = "manual"
	}
	return fmt.Sprintf("%s/%s/%d-%d", namespace(name), kind, i1, i2)
}

// parseCellRef extracts (manual, i1, i2) from a ref name under
// refs/imerge/<name>/, or ok=false if it isn't a cell ref (e.g. "state").
func parseCellRef(name, ref string) (manual bool, i1, i2 int, ok bool) {
	prefix := namespace(name) + "/"
	if !strings.HasPrefix(ref, prefix) {
		return false, 0, 0, false
	}
	rest := strings.TrimPrefix(ref, prefix)
	var kind, coords string
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return false, 0, 0, false
	}
	kind, coords = parts[0], parts[1]
	if kind != "auto" && kind != "manual" {
		return false, 0, 0, false
	}
	cc := strings.SplitN(coords, "-", 2)
	if len(cc) != 2 {
		return false, 0, 0, false
	}
	a, err1 := strconv.Atoi(cc[0])
	b, err2 := strconv.Atoi(cc[1])
	if err1 != nil || err2 != nil {
		return false, 0, 0, false
	}
	return kind == "manual", a, b, true
}

// stateBlob is the JSON shape of the state ref. Field order is
// alphabetical by json tag so that encoding/json's declaration-order
// marshaling matches gitimerge.py's json.dumps(..., sort_keys=True).
type stateBlob struct {
	Blockers [][2]int       `json:"blockers"`
	Branch   string          `json:"branch"`
	Goal     string          `json:"goal"`
	GoalOpts map[string]any  `json:"goalopts"`
	Manual   bool            `json:"manual"`
	Tip1     string          `json:"tip1"`
	Tip2     string          `json:"tip2"`
	Version  string          `json:"version"`
}

// InitializeState builds a fresh MergeState from a computed Boundary: the
// left column and top row are populated, manual, from the two ancestries
// (spec §3's boundary-fidelity invariant).
func InitializeState(name string, b *vcs.Boundary, goal string, goalopts map[string]any, manual bool, branch string) *MergeState {
	m := len(b.Ancestry1) - 1
	n := len(b.Ancestry2) - 1
	grid := NewGrid(m, n)
	grid.Set(0, 0, MergeRecord{Oid: b.Base, Flags: NewManual})
	for i1 := 1; i1 <= m; i1++ {
		grid.Set(i1, 0, MergeRecord{Oid: b.Ancestry1[i1], Flags: NewManual})
	}
	for i2 := 1; i2 <= n; i2++ {
		grid.Set(0, i2, MergeRecord{Oid: b.Ancestry2[i2], Flags: NewManual})
	}
	if goalopts == nil {
		goalopts = map[string]any{}
	}
	return &MergeState{
		Name:        name,
		Tip1:        b.Ancestry1[m],
		Tip2:        b.Ancestry2[n],
		Goal:        goal,
		GoalOpts:    goalopts,
		Manual:      manual,
		Branch:      branch,
		FirstParent: b.FirstParent,
		Block:       FullBlock(grid),
	}
}

// Save writes every cell with a NEW_* flag to its ref (promoting it to
// SAVED_*), deletes any ref whose cell no longer has a sha1, and finally
// rewrites the state blob. Cell refs are written before the state blob so
// that any cell a reader observes is covered by a state blob that
// tolerates it (spec §5 ordering guarantee).
func (s *MergeState) Save(ctx context.Context, v vcs.Vcs) error {
	m, n := s.Block.Len1(), s.Block.Len2()
	blockers := make([][2]int, 0)
	for i1 := 0; i1 < m; i1++ {
		for i2 := 0; i2 < n; i2++ {
			r := s.Block.Get(i1, i2)

			if r.Flags&manualFlags != 0 {
				// MANUAL supersedes AUTO: drop any leftover auto ref/flag.
				if r.Flags&(SavedAuto|NewAuto) != 0 {
					if err := v.DeleteRef(ctx, cellRefName(s.Name, false, i1, i2)); err != nil {
						return errors.Wrapf(err, "clearing stale auto ref at (%d,%d)", i1, i2)
					}
					r.Flags &^= (SavedAuto | NewAuto)
				}
			}

			switch {
			case r.Flags&NewManual != 0:
				if !r.IsKnown() {
					if err := v.DeleteRef(ctx, cellRefName(s.Name, true, i1, i2)); err != nil {
						return errors.Wrapf(err, "deleting manual ref at (%d,%d)", i1, i2)
					}
				} else if err := v.UpdateRef(ctx, cellRefName(s.Name, true, i1, i2), r.Oid); err != nil {
					return errors.Wrapf(err, "saving manual merge at (%d,%d)", i1, i2)
				}
				r.Flags = (r.Flags &^ NewManual) | SavedManual
			case r.Flags&NewAuto != 0:
				if !r.IsKnown() {
					if err := v.DeleteRef(ctx, cellRefName(s.Name, false, i1, i2)); err != nil {
						return errors.Wrapf(err, "deleting auto ref at (%d,%d)", i1, i2)
					}
				} else if err := v.UpdateRef(ctx, cellRefName(s.Name, false, i1, i2), r.Oid); err != nil {
					return errors.Wrapf(err, "saving auto merge at (%d,%d)", i1, i2)
				}
				r.Flags = (r.Flags &^ NewAuto) | SavedAuto
			}

			s.Block.Set(i1, i2, r)
			if r.IsBlocked() {
				blockers = append(blockers, [2]int{i1, i2})
			}
		}
	}
	sort.Slice(blockers, func(i, j int) bool {
		if blockers[i][0] != blockers[j][0] {
			return blockers[i][0] < blockers[j][0]
		}
		return blockers[i][1] < blockers[j][1]
	})
	blob := stateBlob{
		Blockers: blockers,
		Branch:   s.Branch,
		Goal:     s.Goal,
		GoalOpts: s.GoalOpts,
		Manual:   s.Manual,
		Tip1:     string(s.Tip1),
		Tip2:     string(s.Tip2),
		Version:  CurrentVersion,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return errors.Wrap(err, "encoding state blob")
	}
	data = append(data, '\n')
	blobOid, err := v.WriteBlob(ctx, data)
	if err != nil {
		return errors.Wrap(err, "writing state blob")
	}
	return v.UpdateRef(ctx, stateRefName(s.Name), blobOid)
}

// ReadState reconstructs a MergeState from the ref namespace of name.
func ReadState(ctx context.Context, v vcs.Vcs, name string) (*MergeState, error) {
	stateOid, err := v.ReadRef(ctx, stateRefName(name))
	if err != nil {
		return nil, err
	}
	if stateOid == "" {
		return nil, &NoSuchMergeError{Name: name}
	}
	data, err := v.ReadBlob(ctx, stateOid)
	if err != nil {
		return nil, errors.Wrap(err, "reading state blob")
	}
	var blob stateBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, &CorruptStateError{Reason: "state blob is not valid JSON: " + err.Error()}
	}
	major, minor, err := parseVersion(blob.Version)
	if err != nil {
		return nil, &CorruptStateError{Reason: err.Error()}
	}
	if major != currentMajor || minor > currentMinor {
		return nil, &CorruptStateError{Reason: fmt.Sprintf("unsupported state version %s", blob.Version)}
	}

	refs, err := v.ForEachRef(ctx, namespace(name)+"/")
	if err != nil {
		return nil, errors.Wrap(err, "enumerating merge refs")
	}

	type parsedCell struct {
		manual bool
		oid    vcs.Oid
	}
	cells := make(map[[2]int]parsedCell)
	maxI1, maxI2 := 0, 0
	for ref, oid := range refs {
		manual, i1, i2, ok := parseCellRef(name, ref)
		if !ok {
			continue
		}
		cells[[2]int{i1, i2}] = parsedCell{manual: manual, oid: oid}
		if i1 > maxI1 {
			maxI1 = i1
		}
		if i2 > maxI2 {
			maxI2 = i2
		}
	}

	for i1 := 0; i1 <= maxI1; i1++ {
		c, ok := cells[[2]int{i1, 0}]
		if !ok || !c.manual {
			return nil, &CorruptStateError{Reason: fmt.Sprintf("merge %d-0 is missing", i1)}
		}
	}
	for i2 := 0; i2 <= maxI2; i2++ {
		c, ok := cells[[2]int{0, i2}]
		if !ok || !c.manual {
			return nil, &CorruptStateError{Reason: fmt.Sprintf("merge 0-%d is missing", i2)}
		}
	}

	grid := NewGrid(maxI1, maxI2)
	for coord, c := range cells {
		flag := SavedAuto
		if c.manual {
			flag = SavedManual
		}
		grid.Set(coord[0], coord[1], MergeRecord{Oid: c.oid, Flags: flag})
	}
	for _, bc := range blob.Blockers {
		if len(bc) != 2 {
			continue
		}
		i1, i2 := bc[0], bc[1]
		if i1 < 0 || i1 > maxI1 || i2 < 0 || i2 > maxI2 {
			return nil, &CorruptStateError{Reason: fmt.Sprintf("blocker (%d,%d) is out of range", i1, i2)}
		}
		r := grid.Get(i1, i2)
		r.RecordBlocked()
		grid.Set(i1, i2, r)
	}

	return &MergeState{
		Name:     name,
		Tip1:     vcs.Oid(blob.Tip1),
		Tip2:     vcs.Oid(blob.Tip2),
		Goal:     blob.Goal,
		GoalOpts: blob.GoalOpts,
		Manual:   blob.Manual,
		Branch:   blob.Branch,
		Block:    FullBlock(grid),
	}, nil
}

func parseVersion(v string) (major, minor int, err error) {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return 0, 0, errors.Errorf("malformed version %q", v)
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, errors.Errorf("malformed version %q", v)
	}
	return major, minor, nil
}

// Remove deletes every ref under this merge's namespace.
func Remove(ctx context.Context, v vcs.Vcs, name string) error {
	refs, err := v.ForEachRef(ctx, namespace(name)+"/")
	if err != nil {
		return err
	}
	for ref := range refs {
		if err := v.DeleteRef(ctx, ref); err != nil {
			return errors.Wrapf(err, "deleting %s", ref)
		}
	}
	return nil
}

// List returns the names of all incremental merges with recorded state,
// by scanning refs/imerge/*/state.
func List(ctx context.Context, v vcs.Vcs) ([]string, error) {
	refs, err := v.ForEachRef(ctx, "refs/imerge/")
	if err != nil {
		return nil, err
	}
	var names []string
	for ref := range refs {
		if !strings.HasSuffix(ref, "/state") {
			continue
		}
		rest := strings.TrimPrefix(ref, "refs/imerge/")
		name := strings.TrimSuffix(rest, "/state")
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
