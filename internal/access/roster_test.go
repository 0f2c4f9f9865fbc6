package access

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRosterMembership(t *testing.T) {
	roster := NewRoster(657952763, 5162612990, 0, 657952763)

	tests := []struct {
		id   int64
		want bool
	}{
		{657952763, true},
		{5162612990, true},
		{0, false},
		{42, false},
		{-657952763, false},
	}

	for _, tt := range tests {
		if got := roster.IsAuthorized(tt.id); got != tt.want {
			t.Fatalf("IsAuthorized(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}

	if roster.Len() != 2 {
		t.Fatalf("expected 2 distinct ids, got %d", roster.Len())
	}
}

func TestNilRosterRejectsEveryone(t *testing.T) {
	var roster *Roster
	if roster.IsAuthorized(1) {
		t.Fatalf("expected nil roster to reject")
	}
	if roster.Len() != 0 {
		t.Fatalf("expected nil roster to be empty")
	}
}

func TestBuildMergesSources(t *testing.T) {
	path := writeRoster(t, `
members:
  - id: 300
    name: ops
  - id: 400
`)

	roster, err := Build(100, []int64{200}, path)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	for _, id := range []int64{100, 200, 300, 400} {
		if !roster.IsAuthorized(id) {
			t.Fatalf("expected %d to be authorized", id)
		}
	}
	if roster.Len() != 4 {
		t.Fatalf("expected 4 ids, got %d", roster.Len())
	}
}

func TestBuildWithoutRosterFile(t *testing.T) {
	roster, err := Build(100, nil, "")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !roster.IsAuthorized(100) || roster.Len() != 1 {
		t.Fatalf("expected owner-only roster, got len=%d", roster.Len())
	}
}

func TestLoadMembersRejectsMissingID(t *testing.T) {
	path := writeRoster(t, `
members:
  - name: nobody
`)

	_, err := LoadMembers(path)
	if err == nil || !strings.Contains(err.Error(), "id is required") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestLoadMembersReportsMissingFile(t *testing.T) {
	_, err := LoadMembers(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing roster file")
	}
}

func writeRoster(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write roster: %v", err)
	}
	return path
}
