package importer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BitwardenParser parses Bitwarden JSON export files.
// Items carry type codes 1-4; only logins become accounts.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

// bitwardenExport represents the top-level Bitwarden export structure.
type bitwardenExport struct {
	Encrypted bool            `json:"encrypted"`
	Items     []bitwardenItem `json:"items"`
}

// bitwardenItem represents a Bitwarden vault item.
type bitwardenItem struct {
	Type   int                    `json:"type"`
	Name   string                 `json:"name"`
	Notes  string                 `json:"notes"`
	Login  *bitwardenLogin        `json:"login"`
	Fields []bitwardenCustomField `json:"fields"`
}

// bitwardenLogin represents Bitwarden login data.
type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	TOTP     string         `json:"totp"`
}

// bitwardenURI represents a Bitwarden URI entry.
type bitwardenURI struct {
	URI string `json:"uri"`
}

// bitwardenCustomField represents a Bitwarden custom field.
type bitwardenCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  int    `json:"type"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data.
func (p *BitwardenParser) Parse(data []byte) (*ImportResult, error) {
	result := &ImportResult{
		Accounts: make([]*ImportedAccount, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}

	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse Bitwarden JSON: %w", err)
	}
	if export.Encrypted {
		return nil, fmt.Errorf("encrypted Bitwarden exports are not supported, export as unencrypted JSON")
	}

	itemCounter := 1
	for i := range export.Items {
		item := &export.Items[i]
		account, reason, warning := p.parseItem(item, &itemCounter)
		if account == nil {
			result.Skipped = append(result.Skipped, SkippedItem{
				OriginalName: item.Name,
				Reason:       reason,
			})
			continue
		}
		result.Accounts = append(result.Accounts, account)
		if warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("item %d (%s): %s", i+1, item.Name, warning))
		}
	}

	DeduplicateDescriptions(result.Accounts)
	return result, nil
}

// parseItem parses a single Bitwarden item. It returns either an account
// with an optional warning, or a skip reason.
func (p *BitwardenParser) parseItem(item *bitwardenItem, itemCounter *int) (*ImportedAccount, string, string) {
	switch item.Type {
	case bitwardenTypeLogin:
	case bitwardenTypeSecureNote:
		return nil, "secure note", ""
	case bitwardenTypeCard:
		return nil, "card", ""
	case bitwardenTypeIdentity:
		return nil, "identity", ""
	default:
		return nil, fmt.Sprintf("unsupported item type: %d", item.Type), ""
	}
	if item.Login == nil {
		return nil, "no login data", ""
	}

	login := item.Login
	var url string
	if len(login.URIs) > 0 {
		url = strings.TrimSpace(login.URIs[0].URI)
	}

	a := newAccount(strings.TrimSpace(item.Name), url,
		strings.TrimSpace(login.Username), login.Password, itemCounter)
	if a == nil {
		return nil, "no username or password", ""
	}

	var dropped []string
	if len(login.URIs) > 1 {
		dropped = append(dropped, fmt.Sprintf("%d additional URIs", len(login.URIs)-1))
	}
	if login.TOTP != "" {
		dropped = append(dropped, "TOTP secret")
	}
	if item.Notes != "" {
		dropped = append(dropped, "notes")
	}
	if len(item.Fields) > 0 {
		dropped = append(dropped, fmt.Sprintf("%d custom fields", len(item.Fields)))
	}
	if len(dropped) > 0 {
		return a, "", "not imported: " + strings.Join(dropped, ", ")
	}
	return a, "", ""
}
