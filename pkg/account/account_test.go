package account

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type testData struct {
	description, url, username, password string
}

var testAccounts = []testData{
	{"xxx desc", "http://c.com", "u0", "p4"},
	{"xxx desc", "http://c.com", "u0", "p3"},
	{"yyy desc", "http://b.com", "u0", "p2"},
	{"zzz desc", "http://a.com", "u0", "p0"},
}

func (d testData) matches(e Entry) bool {
	return e.Description == d.description && e.URL == d.url &&
		e.Username == d.username && e.Password == d.password
}

// stepClock installs a clock that advances by step on every read.
func stepClock(t *testing.T, start time.Time, step time.Duration) {
	t.Helper()
	orig := now
	cur := start
	now = func() time.Time {
		ts := cur
		cur = cur.Add(step)
		return ts
	}
	t.Cleanup(func() { now = orig })
}

// stuckClock installs a clock that returns the same instant for the first
// stuck reads, then advances a millisecond per read.
func stuckClock(t *testing.T, start time.Time, stuck int) *int {
	t.Helper()
	orig := now
	reads := 0
	now = func() time.Time {
		reads++
		if reads <= stuck {
			return start
		}
		return start.Add(time.Duration(reads-stuck) * time.Millisecond)
	}
	t.Cleanup(func() { now = orig })
	return &reads
}

func TestNewAccount(t *testing.T) {
	a := New("a", "http://a.com", "username0", "p0")

	if a.Description() != "a" {
		t.Errorf("Description() = %q, want %q", a.Description(), "a")
	}
	if a.URL() != "http://a.com" {
		t.Errorf("URL() = %q, want %q", a.URL(), "http://a.com")
	}
	if a.Username() != "username0" {
		t.Errorf("Username() = %q, want %q", a.Username(), "username0")
	}
	if a.Password() != "p0" {
		t.Errorf("Password() = %q, want %q", a.Password(), "p0")
	}
	if a.UpdateCount() != 1 {
		t.Errorf("UpdateCount() = %d, want 1", a.UpdateCount())
	}
	if a.ID() == uuid.Nil {
		t.Error("ID() should not be the nil UUID")
	}
	if a.Timestamp().UnixMilli()*int64(time.Millisecond) != a.Timestamp().UnixNano() {
		t.Error("Timestamp() should have millisecond resolution")
	}

	b := New("a", "http://a.com", "username0", "p0")
	if a.ID() == b.ID() {
		t.Error("Two new accounts should have different UUIDs")
	}
}

func TestUpdateHistory(t *testing.T) {
	a := New("d0", "u0", "n0", "p0")
	a.Update("d1", "u1", "n1", "p1")

	if a.UpdateCount() != 2 {
		t.Fatalf("UpdateCount() = %d, want 2", a.UpdateCount())
	}

	latest, err := a.UpdateData(0)
	if err != nil {
		t.Fatalf("UpdateData(0) error = %v", err)
	}
	if !(testData{"d1", "u1", "n1", "p1"}).matches(latest) {
		t.Errorf("UpdateData(0) = %+v, want d1/u1/n1/p1", latest)
	}

	first, err := a.UpdateData(1)
	if err != nil {
		t.Fatalf("UpdateData(1) error = %v", err)
	}
	if !(testData{"d0", "u0", "n0", "p0"}).matches(first) {
		t.Errorf("UpdateData(1) = %+v, want d0/u0/n0/p0", first)
	}

	if a.Description() != "d1" || a.Password() != "p1" {
		t.Errorf("current values = %q/%q, want d1/p1", a.Description(), a.Password())
	}
}

func TestUpdateDataOutOfRange(t *testing.T) {
	a := New("d0", "u0", "n0", "p0")

	for _, idx := range []int{1, 5, -1} {
		if _, err := a.UpdateData(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("UpdateData(%d) error = %v, want %v", idx, err, ErrIndexOutOfRange)
		}
	}
}

func TestGetUpdateData(t *testing.T) {
	for count := 1; count <= len(testAccounts); count++ {
		d := testAccounts[0]
		a := New(d.description, d.url, d.username, d.password)
		for i := 1; i < count; i++ {
			d := testAccounts[i]
			a.Update(d.description, d.url, d.username, d.password)
		}

		if a.UpdateCount() != count {
			t.Fatalf("UpdateCount() = %d, want %d", a.UpdateCount(), count)
		}
		for i := 0; i < count; i++ {
			entry, err := a.UpdateData(i)
			if err != nil {
				t.Fatalf("UpdateData(%d) error = %v", i, err)
			}
			if !testAccounts[count-i-1].matches(entry) {
				t.Errorf("count %d: UpdateData(%d) = %+v, want %+v", count, i, entry, testAccounts[count-i-1])
			}
		}
	}
}

// TestUpdateWithinOneTick checks that updates never reuse or go back in time
// even when the clock does not advance between reads.
func TestUpdateWithinOneTick(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	reads := stuckClock(t, start, 5)

	a := New("d0", "u0", "n0", "p0")
	a.Update("d1", "u1", "n1", "p1")
	a.Update("d2", "u2", "n2", "p2")

	h := a.History()
	for i := 1; i < len(h); i++ {
		if h[i].Millis() <= h[i-1].Millis() {
			t.Errorf("history[%d] timestamp %d not after history[%d] timestamp %d",
				i, h[i].Millis(), i-1, h[i-1].Millis())
		}
	}
	if *reads <= 5 {
		t.Errorf("clock read %d times, expected re-sampling past the stuck reads", *reads)
	}
}

func TestUpdateSubMillisecondClock(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	stepClock(t, start, 100*time.Microsecond)

	a := New("d0", "u0", "n0", "p0")
	for i := 0; i < 20; i++ {
		a.Update("d", "u", "n", "p")
	}

	h := a.History()
	for i := 1; i < len(h); i++ {
		if h[i].Millis() <= h[i-1].Millis() {
			t.Fatalf("history[%d] timestamp %d not after %d", i, h[i].Millis(), h[i-1].Millis())
		}
	}
}

func TestHistoryIsCopy(t *testing.T) {
	a := New("d0", "u0", "n0", "p0")
	h := a.History()
	h[0].Password = "changed"

	if a.Password() != "p0" {
		t.Errorf("mutating History() result changed the account password to %q", a.Password())
	}
}

func TestEqualAndClone(t *testing.T) {
	a := New("d0", "u0", "n0", "p0")
	a.Update("d1", "u1", "n1", "p1")

	c := a.Clone()
	if !a.Equal(c) {
		t.Fatal("Clone() should be equal to the original")
	}

	c.Update("d2", "u2", "n2", "p2")
	if a.Equal(c) {
		t.Error("Updating a clone should not affect equality with the original")
	}
	if a.UpdateCount() != 2 {
		t.Errorf("original UpdateCount() = %d after clone update, want 2", a.UpdateCount())
	}

	other := New("d0", "u0", "n0", "p0")
	if a.Equal(other) {
		t.Error("Accounts with different UUIDs should not be equal")
	}
}

func TestRestore(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	id := uuid.New()

	valid := []Entry{
		NewEntry("d0", "u0", "n0", "p0", base),
		NewEntry("d1", "u1", "n1", "p1", base.Add(time.Millisecond)),
	}

	a, err := Restore(id, valid)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if a.ID() != id || a.UpdateCount() != 2 || a.Description() != "d1" {
		t.Errorf("Restore() = %s/%d/%q, want %s/2/d1", a.ID(), a.UpdateCount(), a.Description(), id)
	}

	tests := []struct {
		name    string
		history []Entry
	}{
		{"empty", nil},
		{"equal timestamps", []Entry{
			NewEntry("d0", "u0", "n0", "p0", base),
			NewEntry("d1", "u1", "n1", "p1", base),
		}},
		{"decreasing timestamps", []Entry{
			NewEntry("d0", "u0", "n0", "p0", base),
			NewEntry("d1", "u1", "n1", "p1", base.Add(-time.Second)),
		}},
		{"future", []Entry{
			NewEntry("d0", "u0", "n0", "p0", time.Now().Add(time.Hour)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(id, tt.history); !errors.Is(err, ErrCorruptHistory) {
				t.Errorf("Restore() error = %v, want %v", err, ErrCorruptHistory)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewEntry("a", "u", "n", "p", ts)

	tests := []struct {
		name string
		b    Entry
		want int
	}{
		{"identical", NewEntry("a", "u", "n", "p", ts), 0},
		{"later timestamp", NewEntry("a", "u", "n", "p", ts.Add(time.Millisecond)), -1},
		{"earlier timestamp wins over fields", NewEntry("0", "0", "0", "0", ts.Add(-time.Millisecond)), 1},
		{"description tie-break", NewEntry("b", "u", "n", "p", ts), -1},
		{"url tie-break", NewEntry("a", "t", "n", "p", ts), 1},
		{"username tie-break", NewEntry("a", "u", "o", "p", ts), -1},
		{"password tie-break", NewEntry("a", "u", "n", "o", ts), 1},
		{"sub-millisecond ignored", NewEntry("a", "u", "n", "p", ts.Add(500*time.Microsecond)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(a, tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
			if got := Compare(tt.b, a); got != -tt.want {
				t.Errorf("Compare() reversed = %d, want %d", got, -tt.want)
			}
		})
	}
}
