package importer

import "strings"

// LastPassParser parses LastPass CSV export files.
// LastPass CSV format:
// url,username,password,totp,extra,name,grouping,fav
type LastPassParser struct{}

// LastPass CSV column names (header-based parsing).
const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColTOTP     = "totp"
	lpColExtra    = "extra"
	lpColName     = "name"
)

// secureNoteURL marks LastPass secure notes.
const secureNoteURL = "http://sn"

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV data.
func (p *LastPassParser) Parse(data []byte) (*ImportResult, error) {
	itemCounter := 1
	return parseCSV(data, true, lpColName, func(get func(string) string) (*ImportedAccount, string) {
		// LastPass may HTML-encode special characters
		decoded := func(col string) string {
			return DecodeHTMLEntities(get(col))
		}
		return p.parseRow(decoded, &itemCounter)
	})
}

// parseRow parses a single CSV row into an ImportedAccount.
func (p *LastPassParser) parseRow(get func(string) string, itemCounter *int) (*ImportedAccount, string) {
	url := get(lpColURL)
	if url == secureNoteURL {
		return nil, "skipped: secure note"
	}

	a := newAccount(get(lpColName), url, get(lpColUsername), get(lpColPassword), itemCounter)
	if a == nil {
		return nil, "skipped: no username or password"
	}

	var dropped []string
	if get(lpColTOTP) != "" {
		dropped = append(dropped, "TOTP secret")
	}
	if get(lpColExtra) != "" {
		dropped = append(dropped, "notes")
	}
	if len(dropped) > 0 {
		return a, "not imported: " + strings.Join(dropped, ", ")
	}
	return a, ""
}
