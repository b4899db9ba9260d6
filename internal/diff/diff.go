// Package diff produces unified diffs (---/+++ headers, @@ hunks, lines
// prefixed with ' ', '-', '+') between two versions of a text file.
//
// The line matching uses the classic O(m*n) LCS dynamic-programming table.
// Inputs are bounded by the scanner's max-file-size setting, which keeps the
// table small; a linear-space or Myers-style algorithm can be substituted
// behind the same Unified contract if that cap is ever lifted.
package diff

import (
	"fmt"
	"strings"
)

// DefaultContext is the number of unchanged lines emitted around each hunk.
const DefaultContext = 3

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opAdd
)

type lineOp struct {
	kind opKind
	text string
}

// Unified returns the unified diff between oldText and newText.
// label names the file in the two header lines; when label is empty the
// headers are omitted. Identical inputs yield headers only (or the empty
// string without a label).
func Unified(oldText, newText, label string) string {
	return UnifiedContext(oldText, newText, label, DefaultContext)
}

// UnifiedContext is Unified with an explicit context size.
func UnifiedContext(oldText, newText, label string, context int) string {
	if context < 0 {
		context = 0
	}

	ops := computeOps(splitLines(oldText), splitLines(newText))
	hunks := groupHunks(ops, context)

	var b strings.Builder
	if label != "" {
		fmt.Fprintf(&b, "--- %s (previous)\n", label)
		fmt.Fprintf(&b, "+++ %s (current)\n", label)
	}

	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, op := range h.ops {
			switch op.kind {
			case opEqual:
				b.WriteByte(' ')
			case opDelete:
				b.WriteByte('-')
			case opAdd:
				b.WriteByte('+')
			}
			b.WriteString(op.text)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// splitLines splits text into lines on '\n'. The empty string is an empty
// file, not a file with one empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// computeOps classifies every line of a and b as equal, deleted, or added
// by tracing back through the LCS table.
func computeOps(a, b []string) []lineOp {
	m, n := len(a), len(b)

	// table[i][j] = LCS length of a[:i] and b[:j].
	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	// Traceback, building the edit script back-to-front.
	reversed := make([]lineOp, 0, m+n)
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			reversed = append(reversed, lineOp{opEqual, a[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			reversed = append(reversed, lineOp{opAdd, b[j-1]})
			j--
		default:
			reversed = append(reversed, lineOp{opDelete, a[i-1]})
			i--
		}
	}

	ops := make([]lineOp, len(reversed))
	for k := range reversed {
		ops[k] = reversed[len(reversed)-1-k]
	}
	return ops
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	ops                []lineOp
}

// groupHunks slices the edit script into hunks, each padded with up to
// context unchanged lines on both sides. Change clusters separated by fewer
// than 2*context equal lines merge into one hunk.
func groupHunks(ops []lineOp, context int) []hunk {
	type span struct{ start, end int } // inclusive op index range of a change cluster

	var clusters []span
	inCluster := false
	for k, op := range ops {
		if op.kind == opEqual {
			inCluster = false
			continue
		}
		if inCluster {
			clusters[len(clusters)-1].end = k
		} else {
			clusters = append(clusters, span{start: k, end: k})
			inCluster = true
		}
	}
	if len(clusters) == 0 {
		return nil
	}

	// Merge clusters whose equal-line gap is under the merge radius.
	merged := []span{clusters[0]}
	for _, c := range clusters[1:] {
		last := &merged[len(merged)-1]
		if c.start-last.end-1 < 2*context {
			last.end = c.end
		} else {
			merged = append(merged, c)
		}
	}

	hunks := make([]hunk, 0, len(merged))
	for _, c := range merged {
		start := c.start - context
		if start < 0 {
			start = 0
		}
		end := c.end + context
		if end > len(ops)-1 {
			end = len(ops) - 1
		}

		// Lines of the old/new file consumed before this hunk.
		oldBefore, newBefore := 0, 0
		for _, op := range ops[:start] {
			if op.kind != opAdd {
				oldBefore++
			}
			if op.kind != opDelete {
				newBefore++
			}
		}

		h := hunk{ops: ops[start : end+1]}
		for _, op := range h.ops {
			if op.kind != opAdd {
				h.oldCount++
			}
			if op.kind != opDelete {
				h.newCount++
			}
		}

		// Unified convention: a zero-length side points at the line before.
		h.oldStart = oldBefore + 1
		if h.oldCount == 0 {
			h.oldStart = oldBefore
		}
		h.newStart = newBefore + 1
		if h.newCount == 0 {
			h.newStart = newBefore
		}

		hunks = append(hunks, h)
	}
	return hunks
}
