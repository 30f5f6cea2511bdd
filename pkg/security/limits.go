package security

// Limits caps how many issues of each kind a report lists.
// Scores are always computed over every account.
type Limits struct {
	// DuplicateLimit is the max reused-password groups to show (0 = unlimited).
	DuplicateLimit int
	// WeakLimit is the max weak passwords to show (0 = unlimited).
	WeakLimit int
	// StaleLimit is the max stale passwords to show (0 = unlimited).
	StaleLimit int
}

// DefaultLimits returns the limits used when the caller asks for a summary.
func DefaultLimits() Limits {
	return NewLimits(3)
}

// NewLimits returns limits that cap every issue kind at n.
// A non-positive n means unlimited.
func NewLimits(n int) Limits {
	if n < 0 {
		n = 0
	}
	return Limits{
		DuplicateLimit: n,
		WeakLimit:      n,
		StaleLimit:     n,
	}
}

// IsLimited returns true if any issue kind is capped.
func (l Limits) IsLimited() bool {
	return l.DuplicateLimit > 0 || l.WeakLimit > 0 || l.StaleLimit > 0
}

// limitFor returns the cap that applies to the given issue type.
func (l Limits) limitFor(t IssueType) int {
	switch t {
	case IssueWeakPassword:
		return l.WeakLimit
	case IssueDuplicatePassword:
		return l.DuplicateLimit
	case IssueStalePassword:
		return l.StaleLimit
	default:
		return 0
	}
}
