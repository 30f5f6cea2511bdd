package importer

import "strings"

// OnePasswordParser parses 1Password CSV export files.
// 1Password CSV format (9 columns):
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

// 1Password CSV column names (header-based parsing).
const (
	op1ColTitle    = "Title"
	op1ColWebsite  = "Website"
	op1ColUsername = "Username"
	op1ColPassword = "Password"
	op1ColOTPAuth  = "OTPAuth"
	op1ColArchived = "Archived"
	op1ColNotes    = "Notes"
)

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

// Parse parses 1Password CSV data.
func (p *OnePasswordParser) Parse(data []byte) (*ImportResult, error) {
	itemCounter := 1
	return parseCSV(data, false, op1ColTitle, func(get func(string) string) (*ImportedAccount, string) {
		return p.parseRow(get, &itemCounter)
	})
}

// parseRow parses a single CSV row into an ImportedAccount.
func (p *OnePasswordParser) parseRow(get func(string) string, itemCounter *int) (*ImportedAccount, string) {
	title := get(op1ColTitle)
	if strings.EqualFold(get(op1ColArchived), "true") {
		return nil, "skipped: archived item"
	}

	a := newAccount(title, get(op1ColWebsite), get(op1ColUsername), get(op1ColPassword), itemCounter)
	if a == nil {
		return nil, "skipped: no username or password"
	}

	// Accounts have no slot for these
	var dropped []string
	if get(op1ColOTPAuth) != "" {
		dropped = append(dropped, "OTP secret")
	}
	if get(op1ColNotes) != "" {
		dropped = append(dropped, "notes")
	}
	if len(dropped) > 0 {
		return a, "not imported: " + strings.Join(dropped, ", ")
	}
	return a, ""
}
