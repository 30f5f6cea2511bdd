package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forest6511/acctvault/internal/cli"
	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/store"
)

// ConflictMode specifies how to handle an imported description that already
// names an account in the store.
type ConflictMode int

const (
	// ConflictSkip keeps the existing account and drops the imported one.
	ConflictSkip ConflictMode = iota
	// ConflictOverwrite records the imported values as a new history entry
	// of the existing account.
	ConflictOverwrite
	// ConflictError refuses the whole import if any description exists.
	ConflictError
)

// ErrConflict is returned by Apply in ConflictError mode.
var ErrConflict = errors.New("importer: description already exists")

// ParseConflictMode maps "skip", "overwrite" or "error" to a mode.
func ParseConflictMode(s string) (ConflictMode, error) {
	switch strings.ToLower(s) {
	case "skip":
		return ConflictSkip, nil
	case "overwrite":
		return ConflictOverwrite, nil
	case "error":
		return ConflictError, nil
	default:
		return 0, fmt.Errorf("invalid conflict mode %q: must be skip, overwrite, or error", s)
	}
}

// String returns the flag spelling of the mode.
func (m ConflictMode) String() string {
	switch m {
	case ConflictSkip:
		return "skip"
	case ConflictOverwrite:
		return "overwrite"
	case ConflictError:
		return "error"
	default:
		return fmt.Sprintf("ConflictMode(%d)", int(m))
	}
}

// Action is what Apply did, or would do, with one imported account.
type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionUnchanged Action = "unchanged"
	ActionSkip      Action = "skip"
)

// Outcome pairs an imported account with its action.
type Outcome struct {
	Account *ImportedAccount
	Action  Action
}

// ApplyResult summarizes an import into a store.
type ApplyResult struct {
	Outcomes  []Outcome
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
}

// Plan decides what Apply would do without touching the store. In
// ConflictError mode it fails with ErrConflict naming every existing
// description.
func Plan(s *store.Store, accounts []*ImportedAccount, mode ConflictMode) (*ApplyResult, error) {
	res := &ApplyResult{}
	var conflicts []string
	for _, in := range accounts {
		existing := s.Find(in.Description)
		action := ActionCreate
		switch {
		case existing == nil:
		case mode == ConflictError:
			conflicts = append(conflicts, in.Description)
			continue
		case mode == ConflictSkip:
			action = ActionSkip
		case sameValues(existing, in):
			action = ActionUnchanged
		default:
			action = ActionUpdate
		}
		res.add(Outcome{Account: in, Action: action})
	}
	if len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrConflict, strings.Join(conflicts, ", "))
	}
	return res, nil
}

// Apply imports accounts into s according to mode. Nothing is changed when
// it returns an error in ConflictError mode.
func Apply(s *store.Store, accounts []*ImportedAccount, mode ConflictMode) (*ApplyResult, error) {
	res, err := Plan(s, accounts, mode)
	if err != nil {
		return nil, err
	}
	for _, o := range res.Outcomes {
		in := o.Account
		switch o.Action {
		case ActionCreate:
			if _, err := s.Create(in.Description, in.URL, in.Username, in.Password); err != nil {
				return res, fmt.Errorf("failed to import %q: %w", in.Description, err)
			}
		case ActionUpdate:
			existing := s.Find(in.Description)
			if err := s.Update(existing, in.Description, in.URL, in.Username, in.Password); err != nil {
				return res, fmt.Errorf("failed to update %q: %w", in.Description, err)
			}
		}
	}
	return res, nil
}

func (r *ApplyResult) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Action {
	case ActionCreate:
		r.Created++
	case ActionUpdate:
		r.Updated++
	case ActionUnchanged:
		r.Unchanged++
	case ActionSkip:
		r.Skipped++
	}
}

func sameValues(a *account.Account, in *ImportedAccount) bool {
	return a.URL() == in.URL && a.Username() == in.Username && a.Password() == in.Password
}

// FilterDescriptions keeps the accounts whose description matches one of
// the patterns. Patterns without glob characters must match exactly and
// must exist.
func FilterDescriptions(accounts []*ImportedAccount, patterns []string) ([]*ImportedAccount, error) {
	return cli.Select(patterns, accounts, func(a *ImportedAccount) string { return a.Description })
}
