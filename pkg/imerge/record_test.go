package imerge

import "testing"

func TestMergeRecordZeroValue(t *testing.T) {
	var r MergeRecord
	if r.IsKnown() {
		t.Error("zero-value record must not be known")
	}
	if r.IsManual() || r.IsAuto() || r.IsBlocked() {
		t.Error("zero-value record must carry no flags")
	}
}

func TestRecordAuto(t *testing.T) {
	var r MergeRecord
	r.RecordAuto("c1")
	if !r.IsKnown() || r.Oid != "c1" {
		t.Fatalf("expected oid c1, got %q known=%v", r.Oid, r.IsKnown())
	}
	if !r.IsAuto() || r.IsManual() {
		t.Errorf("expected auto-only provenance, got flags=%b", r.Flags)
	}
}

func TestRecordAutoClearsBlocked(t *testing.T) {
	var r MergeRecord
	r.RecordBlocked()
	r.RecordAuto("c1")
	if r.IsBlocked() {
		t.Error("RecordAuto must clear a prior Blocked flag")
	}
}

func TestRecordManualSupersedesAuto(t *testing.T) {
	var r MergeRecord
	r.RecordAuto("c1")
	r.RecordManual("c2")
	if r.Oid != "c2" {
		t.Fatalf("expected manual oid to win, got %q", r.Oid)
	}
	if !r.IsManual() {
		t.Error("expected manual provenance")
	}
	if r.IsAuto() {
		t.Error("RecordManual must discard any prior new auto provenance (NewAuto)")
	}
}

func TestRecordManualClearsBlocked(t *testing.T) {
	var r MergeRecord
	r.RecordBlocked()
	r.RecordManual("c1")
	if r.IsBlocked() {
		t.Error("RecordManual must clear a prior Blocked flag")
	}
}

func TestRecordBlockedLeavesProvenanceAlone(t *testing.T) {
	var r MergeRecord
	r.RecordAuto("c1")
	r.RecordBlocked()
	if !r.IsBlocked() {
		t.Fatal("expected Blocked to be set")
	}
	if !r.IsAuto() || r.Oid != "c1" {
		t.Error("RecordBlocked must not disturb existing provenance")
	}
}

func TestSavedAutoIsKnownAndAuto(t *testing.T) {
	r := MergeRecord{Oid: "c1", Flags: SavedAuto}
	if !r.IsKnown() || !r.IsAuto() || r.IsManual() {
		t.Errorf("unexpected classification for SavedAuto record: %+v", r)
	}
}

func TestSavedManualIsKnownAndManual(t *testing.T) {
	r := MergeRecord{Oid: "c1", Flags: SavedManual}
	if !r.IsKnown() || !r.IsManual() || r.IsAuto() {
		t.Errorf("unexpected classification for SavedManual record: %+v", r)
	}
}
