package diff_test

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"filesentry/internal/diff"
)

func TestUnified_SingleLineChange(t *testing.T) {
	got := diff.Unified("a\nb\nc", "a\nx\nc", "f.txt")

	want := strings.Join([]string{
		"--- f.txt (previous)",
		"+++ f.txt (current)",
		"@@ -1,3 +1,3 @@",
		" a",
		"-b",
		"+x",
		" c",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("Unified() =\n%q\nwant\n%q", got, want)
	}
}

func TestUnified_IdenticalTexts(t *testing.T) {
	t.Run("with label emits header only", func(t *testing.T) {
		got := diff.Unified("a\nb", "a\nb", "same.txt")
		want := "--- same.txt (previous)\n+++ same.txt (current)\n"
		if got != want {
			t.Errorf("Unified() = %q, want %q", got, want)
		}
	})

	t.Run("without label emits empty string", func(t *testing.T) {
		if got := diff.Unified("a\nb", "a\nb", ""); got != "" {
			t.Errorf("Unified() = %q, want empty", got)
		}
	})
}

func TestUnified_DisjointTexts(t *testing.T) {
	got := diff.Unified("1\n2", "x\ny\nz", "f")

	want := strings.Join([]string{
		"--- f (previous)",
		"+++ f (current)",
		"@@ -1,2 +1,3 @@",
		"-1",
		"-2",
		"+x",
		"+y",
		"+z",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("Unified() =\n%q\nwant\n%q", got, want)
	}
}

func TestUnified_AdditionToEmptyFile(t *testing.T) {
	got := diff.Unified("", "a\nb", "new.txt")

	if !strings.Contains(got, "@@ -0,0 +1,2 @@") {
		t.Errorf("missing zero-length old side header, got:\n%s", got)
	}
	if !strings.Contains(got, "+a\n+b\n") {
		t.Errorf("missing added lines, got:\n%s", got)
	}
}

func TestUnified_HunkGrouping(t *testing.T) {
	lines := func(ls ...string) string { return strings.Join(ls, "\n") }

	t.Run("distant changes produce separate hunks", func(t *testing.T) {
		// Seven unchanged lines between the two changes: beyond the 2N=6
		// merge radius, so two hunks.
		old := lines("a", "X", "c", "d", "e", "f", "g", "h", "i", "Y", "k")
		new := lines("a", "X2", "c", "d", "e", "f", "g", "h", "i", "Y2", "k")

		got := diff.Unified(old, new, "f")
		if n := strings.Count(got, "@@"); n != 2*2 {
			t.Fatalf("hunk count = %d, want 2 (output:\n%s)", n/2, got)
		}
		if !strings.Contains(got, "@@ -1,5 +1,5 @@") {
			t.Errorf("first hunk header wrong:\n%s", got)
		}
		if !strings.Contains(got, "@@ -7,5 +7,5 @@") {
			t.Errorf("second hunk header wrong:\n%s", got)
		}
	})

	t.Run("near changes merge into one hunk", func(t *testing.T) {
		// Five unchanged lines between changes: inside the merge radius.
		old := lines("a", "X", "c", "d", "e", "f", "g", "Y", "i")
		new := lines("a", "X2", "c", "d", "e", "f", "g", "Y2", "i")

		got := diff.Unified(old, new, "f")
		if n := strings.Count(got, "@@"); n != 2 {
			t.Fatalf("hunk count = %d, want 1 (output:\n%s)", n/2, got)
		}
	})

	t.Run("context is capped at three lines", func(t *testing.T) {
		old := lines("1", "2", "3", "4", "5", "X", "7", "8", "9", "10")
		new := lines("1", "2", "3", "4", "5", "Z", "7", "8", "9", "10")

		got := diff.Unified(old, new, "f")
		if !strings.Contains(got, "@@ -3,7 +3,7 @@") {
			t.Errorf("hunk header = wrong window:\n%s", got)
		}
		if strings.Contains(got, " 1\n") || strings.Contains(got, " 10\n") {
			t.Errorf("context exceeded three lines:\n%s", got)
		}
	})
}

// hunkBody strips everything up to and including the first @@ header line,
// leaving the prefixed diff lines for comparison across implementations.
func hunkBody(t *testing.T, s string) []string {
	t.Helper()
	var body []string
	seenHunk := false
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		if strings.HasPrefix(line, "@@") {
			seenHunk = true
			continue
		}
		if seenHunk {
			body = append(body, strings.TrimRight(line, "\n"))
		}
	}
	if !seenHunk {
		t.Fatalf("no hunk in diff output:\n%s", s)
	}
	return body
}

// Cross-validates hunk bodies against go-difflib on inputs whose edit
// script is unambiguous.
func TestUnified_AgreesWithDifflib(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
	}{
		{"replace middle line", "a\nb\nc", "a\nx\nc"},
		{"append lines", "a\nb", "a\nb\nc\nd"},
		{"delete tail lines", "a\nb\nc\nd", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mine := hunkBody(t, diff.Unified(tt.old, tt.new, "f"))

			ref, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(tt.old),
				B:        difflib.SplitLines(tt.new),
				FromFile: "f",
				ToFile:   "f",
				Context:  3,
			})
			if err != nil {
				t.Fatalf("difflib error: %v", err)
			}
			theirs := hunkBody(t, ref)

			if len(mine) != len(theirs) {
				t.Fatalf("body length mismatch: %v vs %v", mine, theirs)
			}
			for i := range mine {
				if mine[i] != theirs[i] {
					t.Errorf("line %d: %q vs difflib %q", i, mine[i], theirs[i])
				}
			}
		})
	}
}
