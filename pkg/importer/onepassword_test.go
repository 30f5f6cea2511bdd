package importer

import (
	"strings"
	"testing"
)

func TestOnePasswordParser_Source(t *testing.T) {
	p := &OnePasswordParser{}
	if p.Source() != Source1Password {
		t.Errorf("Source() = %q, want %q", p.Source(), Source1Password)
	}
}

const op1Header = "Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes\n"

func TestOnePasswordParser_Parse(t *testing.T) {
	tests := []struct {
		name         string
		csvData      string
		wantAccounts int
		wantWarnings int
		wantSkipped  int
		wantError    bool
		checkFirst   func(t *testing.T, a *ImportedAccount)
	}{
		{
			name:         "standard login entry",
			csvData:      op1Header + `GitHub,https://github.com,johndoe,mysecretpass123,,false,false,work,`,
			wantAccounts: 1,
			checkFirst: func(t *testing.T, a *ImportedAccount) {
				if a.Description != "GitHub" {
					t.Errorf("Description = %q, want %q", a.Description, "GitHub")
				}
				if a.URL != "https://github.com" {
					t.Errorf("URL = %q, want %q", a.URL, "https://github.com")
				}
				if a.Username != "johndoe" || a.Password != "mysecretpass123" {
					t.Errorf("credentials = %q/%q", a.Username, a.Password)
				}
			},
		},
		{
			name:         "otp and notes are reported as not imported",
			csvData:      op1Header + `GitHub,https://github.com,johndoe,pass,otpauth://totp/x,false,false,,some notes`,
			wantAccounts: 1,
			wantWarnings: 1,
		},
		{
			name: "multiple entries",
			csvData: op1Header +
				"GitHub,https://github.com,user1,pass1,,false,false,work,\n" +
				"AWS,https://aws.amazon.com,user2,pass2,,false,false,,\n",
			wantAccounts: 2,
		},
		{
			name:         "empty title falls back to hostname",
			csvData:      op1Header + `,https://www.example.com/login,user,pass,,false,false,,`,
			wantAccounts: 1,
			checkFirst: func(t *testing.T, a *ImportedAccount) {
				if a.Description != "example.com" {
					t.Errorf("Description = %q, want %q", a.Description, "example.com")
				}
			},
		},
		{
			name:         "no credentials skipped",
			csvData:      op1Header + `Note,,,,,false,false,,just a note`,
			wantAccounts: 0,
			wantSkipped:  1,
		},
		{
			name:         "archived skipped",
			csvData:      op1Header + `Old,https://old.com,u,p,,false,true,,`,
			wantAccounts: 0,
			wantSkipped:  1,
		},
		{
			name: "duplicate titles deduplicated",
			csvData: op1Header +
				"GitHub,https://github.com,user1,pass1,,false,false,,\n" +
				"GitHub,https://github.com,user2,pass2,,false,false,,\n",
			wantAccounts: 2,
		},
		{
			name:         "column count mismatch",
			csvData:      op1Header + `GitHub,https://github.com,user`,
			wantAccounts: 0,
			wantWarnings: 1,
		},
		{
			name:         "BOM stripped",
			csvData:      "\xEF\xBB\xBF" + op1Header + `GitHub,https://github.com,u,p,,false,false,,`,
			wantAccounts: 1,
		},
		{
			name:      "missing title column",
			csvData:   "Website,Username,Password\nhttps://x.com,u,p",
			wantError: true,
		},
		{
			name:      "empty input",
			csvData:   "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &OnePasswordParser{}
			result, err := p.Parse([]byte(tt.csvData))

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
				t.Errorf("got %d skipped, want %d: %v", len(result.Skipped), tt.wantSkipped, result.Skipped)
			}
			if tt.checkFirst != nil && len(result.Accounts) > 0 {
				tt.checkFirst(t, result.Accounts[0])
			}
		})
	}
}

func TestOnePasswordParser_DuplicateDescriptions(t *testing.T) {
	data := op1Header +
		"GitHub,https://github.com,user1,pass1,,false,false,,\n" +
		"GitHub,https://github.com,user2,pass2,,false,false,,\n"

	result, err := (&OnePasswordParser{}).Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Accounts[0].Description != "GitHub" || result.Accounts[1].Description != "GitHub (2)" {
		t.Errorf("descriptions = %q, %q", result.Accounts[0].Description, result.Accounts[1].Description)
	}
	if result.Accounts[1].OriginalName != "GitHub" {
		t.Errorf("OriginalName = %q, want GitHub", result.Accounts[1].OriginalName)
	}
}

func TestOnePasswordParser_QuotedFields(t *testing.T) {
	data := op1Header + `"My ""Work"" Account","https://x.com","u","pa,ss",,false,false,,`

	result, err := (&OnePasswordParser{}).Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(result.Accounts))
	}
	a := result.Accounts[0]
	if a.Description != `My "Work" Account` || a.Password != "pa,ss" {
		t.Errorf("got %q / %q", a.Description, a.Password)
	}
	if strings.Contains(a.Description, "\"\"") {
		t.Error("escaped quotes were not unescaped")
	}
}
