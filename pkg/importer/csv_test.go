package importer

import (
	"bytes"
	"testing"
)

func TestCSVParser_Parse(t *testing.T) {
	data := "description,url,username,password\n" +
		"Bank,https://bank.example,alice,hunter2\n" +
		"  Mail  ,,bob,\n" +
		"Empty,https://x,,\n"

	result, err := (&CSVParser{}).Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(result.Accounts))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].OriginalName != "Empty" {
		t.Errorf("Skipped = %v, want [Empty]", result.Skipped)
	}
	if result.Accounts[1].Description != "Mail" {
		t.Errorf("Description = %q, want %q", result.Accounts[1].Description, "Mail")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := []*ImportedAccount{
		{Description: "Bank", URL: "https://bank.example", Username: "alice", Password: `p"a,ss`},
		{Description: "日本語", Username: "u", Password: "p"},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	result, err := (&CSVParser{}).Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Accounts) != len(in) {
		t.Fatalf("got %d accounts, want %d", len(result.Accounts), len(in))
	}
	for i, a := range result.Accounts {
		want := in[i]
		if a.Description != want.Description || a.URL != want.URL ||
			a.Username != want.Username || a.Password != want.Password {
			t.Errorf("account %d = %+v, want %+v", i, *a, *want)
		}
	}
}
