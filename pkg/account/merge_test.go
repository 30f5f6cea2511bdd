package account

import (
	"errors"
	"testing"
	"time"
)

// runMerge builds a target and a source account sharing one origin entry,
// then applies testAccounts[1:] in order, routing update i to the source when
// useSource[i] is true and to the target otherwise. After merging the source
// into the target, the history must contain every update in order.
func runMerge(t *testing.T, useSource []bool) {
	t.Helper()
	stepClock(t, time.Now().Add(-time.Hour), time.Millisecond)

	d := testAccounts[0]
	tgt := New(d.description, d.url, d.username, d.password)
	src := tgt.Clone()

	for i, toSource := range useSource {
		acct := tgt
		if toSource {
			acct = src
		}
		d := testAccounts[i+1]
		acct.Update(d.description, d.url, d.username, d.password)
	}

	if err := tgt.MergeHistory(src); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}

	count := tgt.UpdateCount()
	if count != len(useSource)+1 {
		t.Fatalf("UpdateCount() after merge = %d, want %d", count, len(useSource)+1)
	}
	for i := 0; i < count; i++ {
		entry, err := tgt.UpdateData(i)
		if err != nil {
			t.Fatalf("UpdateData(%d) error = %v", i, err)
		}
		if !testAccounts[count-i-1].matches(entry) {
			t.Errorf("UpdateData(%d) = %+v, want %+v", i, entry, testAccounts[count-i-1])
		}
	}
}

func TestMergeHistoryScenarios(t *testing.T) {
	tests := []struct {
		name      string
		useSource []bool
	}{
		// target: A, source: A
		{"no change", []bool{}},
		// target: A, source: A B
		{"add from source", []bool{true}},
		// target: A B, source: A
		{"add nothing", []bool{false}},
		// target: A C, source: A B
		{"add in middle", []bool{true, false}},
		// target: A B, source: A C
		{"add at end", []bool{false, true}},
		// target: A B C, source: A
		{"add nothing to two", []bool{false, false}},
		// target: A, source: A B C
		{"add two at end", []bool{true, true}},
		// target: A C, source: A B D
		{"add before and after", []bool{true, false, true}},
		// target: A D, source: A B C
		{"insert two", []bool{true, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runMerge(t, tt.useSource)
		})
	}
}

func TestMergeHistoryIDMismatch(t *testing.T) {
	a := New("d0", "u0", "n0", "p0")
	b := New("d0", "u0", "n0", "p0")
	before := a.Clone()

	if err := a.MergeHistory(b); !errors.Is(err, ErrIDMismatch) {
		t.Fatalf("MergeHistory() error = %v, want %v", err, ErrIDMismatch)
	}
	if !a.Equal(before) {
		t.Error("failed MergeHistory() should leave the account unchanged")
	}
}

func TestMergeHistoryIdentity(t *testing.T) {
	stepClock(t, time.Now().Add(-time.Hour), time.Millisecond)

	a := New("d0", "u0", "n0", "p0")
	a.Update("d1", "u1", "n1", "p1")
	a.Update("d2", "u2", "n2", "p2")
	want := a.Clone()

	if err := a.MergeHistory(a.Clone()); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}
	if !a.Equal(want) {
		t.Errorf("merging a clone changed the account: got %d entries, want %d", a.UpdateCount(), want.UpdateCount())
	}
}

// divergent returns two copies of one account edited independently.
func divergent(t *testing.T) (*Account, *Account) {
	t.Helper()
	stepClock(t, time.Now().Add(-time.Hour), time.Millisecond)

	a := New("d0", "u0", "n0", "p0")
	b := a.Clone()
	a.Update("a1", "u", "n", "p")
	b.Update("b1", "u", "n", "p")
	b.Update("b2", "u", "n", "p")
	a.Update("a2", "u", "n", "p")
	return a, b
}

func TestMergeHistoryCommutative(t *testing.T) {
	a, b := divergent(t)

	ab := a.Clone()
	if err := ab.MergeHistory(b); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}
	ba := b.Clone()
	if err := ba.MergeHistory(a); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}

	if !ab.Equal(ba) {
		t.Errorf("a.MergeHistory(b) != b.MergeHistory(a): %v vs %v", ab.History(), ba.History())
	}
	if ab.UpdateCount() != 5 {
		t.Errorf("merged UpdateCount() = %d, want 5", ab.UpdateCount())
	}
}

func TestMergeHistoryIdempotent(t *testing.T) {
	a, b := divergent(t)

	once := a.Clone()
	if err := once.MergeHistory(b); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}
	twice := once.Clone()
	if err := twice.MergeHistory(b); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}

	if !once.Equal(twice) {
		t.Error("merging the same history twice should equal merging it once")
	}
}

func TestMergeHistoryLeavesSourceUntouched(t *testing.T) {
	a, b := divergent(t)
	before := b.Clone()

	if err := a.MergeHistory(b); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}
	if !b.Equal(before) {
		t.Error("MergeHistory() should not modify its argument")
	}
}

// TestMergeHistoryTimestampCollision checks that distinct entries carrying
// the same timestamp resolve deterministically and keep the history strictly
// increasing.
func TestMergeHistoryTimestampCollision(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	id := New("x", "x", "x", "x").ID()

	origin := NewEntry("d0", "u0", "n0", "p0", base)
	fromA := NewEntry("alpha", "u", "n", "p", base.Add(time.Second))
	fromB := NewEntry("beta", "u", "n", "p", base.Add(time.Second))

	a, err := Restore(id, []Entry{origin, fromA})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	b, err := Restore(id, []Entry{origin, fromB})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	ab := a.Clone()
	if err := ab.MergeHistory(b); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}
	ba := b.Clone()
	if err := ba.MergeHistory(a); err != nil {
		t.Fatalf("MergeHistory() error = %v", err)
	}

	if !ab.Equal(ba) {
		t.Fatal("collision resolution should not depend on merge direction")
	}
	if ab.Description() != "beta" {
		t.Errorf("Description() = %q, want %q (greatest entry wins)", ab.Description(), "beta")
	}
	if _, err := Restore(id, ab.History()); err != nil {
		t.Errorf("merged history should keep its history ordered: %v", err)
	}
}

func TestMergeEntriesAssociative(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := func(ms int, d string) Entry {
		return NewEntry(d, "u", "n", "p", base.Add(time.Duration(ms)*time.Millisecond))
	}

	x := []Entry{e(0, "o"), e(2, "x2"), e(5, "x5")}
	y := []Entry{e(0, "o"), e(1, "y1"), e(5, "y5")}
	z := []Entry{e(0, "o"), e(3, "z3"), e(6, "z6")}

	left := mergeEntries(mergeEntries(x, y), z)
	right := mergeEntries(x, mergeEntries(y, z))

	if len(left) != len(right) {
		t.Fatalf("len(left) = %d, len(right) = %d", len(left), len(right))
	}
	for i := range left {
		if !left[i].Equal(right[i]) {
			t.Errorf("entry %d: %+v != %+v", i, left[i], right[i])
		}
	}
}
