package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/forest6511/acctvault/pkg/importer"
	"github.com/forest6511/acctvault/pkg/store"
)

func TestValidateExportFlags(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		withHistory bool
		expectError bool
	}{
		{"csv", "csv", false, false},
		{"json", "json", false, false},
		{"uppercase json", "JSON", false, false},
		{"json with history", "json", true, false},
		{"csv with history", "csv", true, true},
		{"invalid format", "xml", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldFormat, oldHistory := exportFormat, exportWithHistory
			defer func() { exportFormat, exportWithHistory = oldFormat, oldHistory }()

			exportFormat = tt.format
			exportWithHistory = tt.withHistory

			err := validateExportFlags()
			if tt.expectError && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func exportStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	if _, err := s.Create("Bank", "https://bank.example", "alice", `p"a,ss`); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("Mail", "", "bob", "secret"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Update(s.Find("Mail"), "Mail", "https://mail.example", "bob", "secret2"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return s
}

func TestGenerateCSVOutput_RoundTrip(t *testing.T) {
	s := exportStore(t)

	data, err := generateCSVOutput(s.Accounts())
	if err != nil {
		t.Fatalf("generateCSVOutput failed: %v", err)
	}

	result, err := (&importer.CSVParser{}).Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(result.Accounts))
	}
	for i, a := range s.Accounts() {
		got := result.Accounts[i]
		if got.Description != a.Description() || got.URL != a.URL() ||
			got.Username != a.Username() || got.Password != a.Password() {
			t.Errorf("row %d = %+v, want %s", i, *got, a.Description())
		}
	}
}

func TestGenerateJSONOutput(t *testing.T) {
	s := exportStore(t)

	tests := []struct {
		name        string
		withHistory bool
		wantHistory []int
	}{
		{"current only", false, []int{0, 0}},
		{"with history", true, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := generateJSONOutput(s.Accounts(), tt.withHistory)
			if err != nil {
				t.Fatalf("generateJSONOutput failed: %v", err)
			}

			var got []exportAccount
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d accounts, want 2", len(got))
			}
			for i, a := range s.Accounts() {
				if got[i].ID != a.ID().String() {
					t.Errorf("ID = %q, want %q", got[i].ID, a.ID())
				}
				if got[i].Password != a.Password() {
					t.Errorf("Password = %q, want %q", got[i].Password, a.Password())
				}
				if len(got[i].History) != tt.wantHistory[i] {
					t.Errorf("%s: %d history entries, want %d", a.Description(), len(got[i].History), tt.wantHistory[i])
				}
			}
			if tt.withHistory && got[1].History[0].Password != "secret" {
				t.Errorf("first Mail entry password = %q, want secret", got[1].History[0].Password)
			}
		})
	}
}

func TestToExportEntry(t *testing.T) {
	s := exportStore(t)
	e := toExportEntry(s.Find("Bank").Current())
	if e.Description != "Bank" || e.Username != "alice" {
		t.Errorf("entry = %+v", e)
	}
	if e.UpdatedAt == "" || e.UpdatedAt[len(e.UpdatedAt)-1] != 'Z' {
		t.Errorf("UpdatedAt = %q, want UTC RFC 3339", e.UpdatedAt)
	}
}

func TestWriteSecureFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "export.csv")

	if err := writeSecureFile(path, []byte("first"), false); err != nil {
		t.Fatalf("writeSecureFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want 0600", info.Mode().Perm())
	}

	if err := writeSecureFile(path, []byte("second"), false); err == nil {
		t.Error("expected error for existing file without force")
	}
	if err := writeSecureFile(path, []byte("second"), true); err != nil {
		t.Fatalf("writeSecureFile with force failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}

	if runtime.GOOS != "windows" {
		link := filepath.Join(dir, "link.csv")
		if err := os.Symlink(path, link); err != nil {
			t.Fatal(err)
		}
		if err := writeSecureFile(link, []byte("x"), true); err == nil {
			t.Error("expected error for symlink")
		}

		if err := writeSecureFile("/etc/acctvault-export.csv", []byte("x"), true); err == nil {
			t.Error("expected error for system directory")
		}
	}
}
