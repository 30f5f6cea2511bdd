package store

// MergeResult counts what MergeAccounts did with each incoming account.
type MergeResult struct {
	Added     int // UUID was new, account copied in
	Merged    int // histories combined and the local account changed
	Unchanged int // local history already contained the incoming one
}

// Total returns the number of accounts examined.
func (r MergeResult) Total() int {
	return r.Added + r.Merged + r.Unchanged
}

// MergeAccounts merges every account of other into s. Accounts with a new
// UUID are copied in; accounts present in both get the union of the two
// histories. other is not modified.
//
// Description uniqueness is not enforced here: two stores may each have
// created a different account under the same description.
func (s *Store) MergeAccounts(other *Store) *MergeResult {
	res := &MergeResult{}
	for _, theirs := range other.Accounts() {
		mine, ok := s.accounts[theirs.ID()]
		if !ok {
			s.accounts[theirs.ID()] = theirs.Clone()
			res.Added++
			continue
		}

		before := mine.Clone()
		// Same UUID, so this cannot fail.
		_ = mine.MergeHistory(theirs)
		if mine.Equal(before) {
			res.Unchanged++
		} else {
			res.Merged++
		}
	}
	return res
}

// DuplicateDescriptions returns descriptions shared by more than one account,
// in sorted order. A merge can introduce them.
func (s *Store) DuplicateDescriptions() []string {
	var dups []string
	var prev string
	for i, a := range s.Accounts() {
		d := a.Description()
		if i > 0 && d == prev && (len(dups) == 0 || dups[len(dups)-1] != d) {
			dups = append(dups, d)
		}
		prev = d
	}
	return dups
}
