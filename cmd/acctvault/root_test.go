package main

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/forest6511/acctvault/pkg/account"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single line", "yes\n", []string{"yes"}, false},
		{"crlf", "hunter2\r\n", []string{"hunter2"}, false},
		{"no trailing newline", "last", []string{"last"}, false},
		{"two lines", "one\ntwo\n", []string{"one", "two"}, false},
		{"empty line", "\n", []string{""}, false},
		{"no input", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			for _, want := range tt.want {
				got, err := readLine(r)
				if err != nil {
					t.Fatalf("readLine failed: %v", err)
				}
				if got != want {
					t.Errorf("readLine() = %q, want %q", got, want)
				}
			}
			if tt.wantErr {
				_, err := readLine(r)
				if !errors.Is(err, io.ErrUnexpectedEOF) {
					t.Errorf("readLine() error = %v, want %v", err, io.ErrUnexpectedEOF)
				}
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	old := stdin
	defer func() { stdin = old }()

	stdin = bufio.NewReader(strings.NewReader("y\nno\n"))
	for _, want := range []bool{true, false} {
		got, err := confirm("Continue?")
		if err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
		if got != want {
			t.Errorf("confirm() = %v, want %v", got, want)
		}
	}
	if _, err := confirm("Continue?"); err == nil {
		t.Error("expected error at end of input")
	}
}

func TestIsYes(t *testing.T) {
	for _, answer := range []string{"y", "Y", "yes", " YES "} {
		if !isYes(answer) {
			t.Errorf("isYes(%q) = false", answer)
		}
	}
	for _, answer := range []string{"", "n", "no", "yep", "1"} {
		if isYes(answer) {
			t.Errorf("isYes(%q) = true", answer)
		}
	}
}

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		password string
		reveal   bool
		want     string
	}{
		{"secret", false, "********"},
		{"secret", true, "secret"},
		{"", false, "(none)"},
		{"", true, ""},
	}
	for _, tt := range tests {
		if got := maskPassword(tt.password, tt.reveal); got != tt.want {
			t.Errorf("maskPassword(%q, %v) = %q, want %q", tt.password, tt.reveal, got, tt.want)
		}
	}
}

func TestDescribeEntry(t *testing.T) {
	now := time.Now()
	history := []account.Entry{
		{Description: "Bank", URL: "", Username: "alice", Password: "one", Timestamp: now},
		{Description: "Bank", URL: "https://bank.example", Username: "alice", Password: "one", Timestamp: now.Add(time.Second)},
		{Description: "Bank", URL: "https://bank.example", Username: "alice", Password: "two", Timestamp: now.Add(2 * time.Second)},
		{Description: "Bank", URL: "https://bank.example", Username: "alice", Password: "two", Timestamp: now.Add(3 * time.Second)},
	}

	tests := []struct {
		name   string
		index  int
		reveal bool
		want   []string
	}{
		{
			name:  "first entry lists non-empty fields",
			index: 0,
			want:  []string{"Description: Bank", "Username:    alice", "Password:    ********"},
		},
		{
			name:  "url change",
			index: 1,
			want:  []string{"URL:         https://bank.example"},
		},
		{
			name:   "password change revealed",
			index:  2,
			reveal: true,
			want:   []string{"Password:    two"},
		},
		{
			name:  "nothing changed",
			index: 3,
			want:  []string{"(no changes)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeEntry(history, tt.index, tt.reveal)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("describeEntry() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "account", "accounts"); got != "account" {
		t.Errorf("plural(1) = %q", got)
	}
	for _, n := range []int{0, 2} {
		if got := plural(n, "account", "accounts"); got != "accounts" {
			t.Errorf("plural(%d) = %q", n, got)
		}
	}
}
