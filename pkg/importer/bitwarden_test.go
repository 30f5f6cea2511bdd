package importer

import "testing"

func TestBitwardenParser_Source(t *testing.T) {
	p := &BitwardenParser{}
	if p.Source() != SourceBitwarden {
		t.Errorf("Source() = %q, want %q", p.Source(), SourceBitwarden)
	}
}

func TestBitwardenParser_Parse(t *testing.T) {
	tests := []struct {
		name         string
		jsonData     string
		wantAccounts int
		wantWarnings int
		wantSkipped  int
		wantError    bool
		checkFirst   func(t *testing.T, a *ImportedAccount)
	}{
		{
			name: "login item",
			jsonData: `{"encrypted":false,"items":[{"type":1,"name":"GitHub",
				"login":{"uris":[{"uri":"https://github.com"}],"username":"johndoe","password":"secret"}}]}`,
			wantAccounts: 1,
			checkFirst: func(t *testing.T, a *ImportedAccount) {
				if a.Description != "GitHub" || a.URL != "https://github.com" {
					t.Errorf("got %q / %q", a.Description, a.URL)
				}
				if a.Username != "johndoe" || a.Password != "secret" {
					t.Errorf("credentials = %q/%q", a.Username, a.Password)
				}
			},
		},
		{
			name: "extra data reported",
			jsonData: `{"items":[{"type":1,"name":"GitHub","notes":"n",
				"fields":[{"name":"pin","value":"1234","type":1}],
				"login":{"uris":[{"uri":"https://a"},{"uri":"https://b"}],"username":"u","password":"p","totp":"T"}}]}`,
			wantAccounts: 1,
			wantWarnings: 1,
		},
		{
			name: "non-login items skipped",
			jsonData: `{"items":[
				{"type":2,"name":"Note","notes":"secret note"},
				{"type":3,"name":"Visa","card":{"number":"4111"}},
				{"type":4,"name":"Me","identity":{"firstName":"A"}},
				{"type":9,"name":"Future"}]}`,
			wantAccounts: 0,
			wantSkipped:  4,
		},
		{
			name:         "login without credentials skipped",
			jsonData:     `{"items":[{"type":1,"name":"Empty","login":{"uris":[]}}]}`,
			wantAccounts: 0,
			wantSkipped:  1,
		},
		{
			name:         "login without login object skipped",
			jsonData:     `{"items":[{"type":1,"name":"Broken"}]}`,
			wantAccounts: 0,
			wantSkipped:  1,
		},
		{
			name:         "empty name falls back to hostname",
			jsonData:     `{"items":[{"type":1,"name":"","login":{"uris":[{"uri":"https://www.bank.com/"}],"password":"p"}}]}`,
			wantAccounts: 1,
			checkFirst: func(t *testing.T, a *ImportedAccount) {
				if a.Description != "bank.com" {
					t.Errorf("Description = %q, want bank.com", a.Description)
				}
			},
		},
		{
			name:      "encrypted export rejected",
			jsonData:  `{"encrypted":true,"items":[]}`,
			wantError: true,
		},
		{
			name:      "invalid json",
			jsonData:  `{"items":[`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := (&BitwardenParser{}).Parse([]byte(tt.jsonData))
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			if len(result.Accounts) != tt.wantAccounts {
				t.Errorf("got %d accounts, want %d", len(result.Accounts), tt.wantAccounts)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %v", len(result.Warnings), tt.wantWarnings, result.Warnings)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("got %d skipped, want %d", len(result.Skipped), tt.wantSkipped)
			}
			if tt.checkFirst != nil && len(result.Accounts) > 0 {
				tt.checkFirst(t, result.Accounts[0])
			}
		})
	}
}
