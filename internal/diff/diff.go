// Package diff aligns two versions of a text file line by line and
// produces side-by-side rows for review before a sync is confirmed.
package diff

import (
	"fmt"
	"strings"
)

// OpKind labels one aligned segment of the two inputs.
type OpKind int

const (
	// OpEqual covers lines present identically on both sides.
	OpEqual OpKind = iota
	// OpReplace covers differing lines occupying the same region.
	OpReplace
	// OpDelete covers lines only present on the left.
	OpDelete
	// OpInsert covers lines only present on the right.
	OpInsert
)

// Op is a half-open segment pair: left lines [I1, I2), right lines [J1, J2).
type Op struct {
	Kind   OpKind
	I1, I2 int
	J1, J2 int
}

// Row is one display line of a side-by-side diff. A zero line number means
// the side has no line in this row.
type Row struct {
	LeftNum  int
	RightNum int
	Left     string
	Right    string
	Changed  bool
}

// Lines splits file content into lines without a trailing phantom line.
func Lines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// Opcodes aligns two line slices with a longest-common-subsequence pass
// and returns the aligned segments in order.
func Opcodes(a, b []string) []Op {
	n, m := len(a), len(b)

	// dp[i][j] holds the LCS length of a[i:] and b[j:].
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var ops []Op
	i, j := 0, 0
	for i < n || j < m {
		if i < n && j < m && a[i] == b[j] {
			i1, j1 := i, j
			for i < n && j < m && a[i] == b[j] {
				i++
				j++
			}
			ops = append(ops, Op{Kind: OpEqual, I1: i1, I2: i, J1: j1, J2: j})
			continue
		}

		i1, j1 := i, j
		for i < n || j < m {
			if i < n && j < m && a[i] == b[j] {
				break
			}
			if i < n && (j >= m || dp[i+1][j] >= dp[i][j+1]) {
				i++
			} else {
				j++
			}
		}
		switch {
		case i > i1 && j > j1:
			ops = append(ops, Op{Kind: OpReplace, I1: i1, I2: i, J1: j1, J2: j})
		case i > i1:
			ops = append(ops, Op{Kind: OpDelete, I1: i1, I2: i, J1: j1, J2: j1})
		default:
			ops = append(ops, Op{Kind: OpInsert, I1: i1, I2: i1, J1: j1, J2: j})
		}
	}
	return ops
}

// SideBySide renders the alignment of two line slices into display rows.
// Replaced regions pair their lines up; the longer side spills into rows
// with an empty opposite column.
func SideBySide(a, b []string) []Row {
	var rows []Row
	for _, op := range Opcodes(a, b) {
		switch op.Kind {
		case OpEqual:
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, Row{
					LeftNum:  op.I1 + k + 1,
					RightNum: op.J1 + k + 1,
					Left:     a[op.I1+k],
					Right:    b[op.J1+k],
				})
			}
		case OpReplace:
			left := op.I2 - op.I1
			right := op.J2 - op.J1
			for k := 0; k < left || k < right; k++ {
				row := Row{Changed: true}
				if k < left {
					row.LeftNum = op.I1 + k + 1
					row.Left = a[op.I1+k]
				}
				if k < right {
					row.RightNum = op.J1 + k + 1
					row.Right = b[op.J1+k]
				}
				rows = append(rows, row)
			}
		case OpDelete:
			for k := op.I1; k < op.I2; k++ {
				rows = append(rows, Row{LeftNum: k + 1, Left: a[k], Changed: true})
			}
		case OpInsert:
			for k := op.J1; k < op.J2; k++ {
				rows = append(rows, Row{RightNum: k + 1, Right: b[k], Changed: true})
			}
		}
	}
	return rows
}

// RangeSummary collapses the changed display rows into a compact listing,
// e.g. "lines 3-5, 9". Returns "no changes" when nothing differs.
func RangeSummary(rows []Row) string {
	var ranges []string
	start := 0
	for idx := 0; idx <= len(rows); idx++ {
		changed := idx < len(rows) && rows[idx].Changed
		if changed && start == 0 {
			start = idx + 1
		}
		if !changed && start != 0 {
			if start == idx {
				ranges = append(ranges, fmt.Sprintf("%d", start))
			} else {
				ranges = append(ranges, fmt.Sprintf("%d-%d", start, idx))
			}
			start = 0
		}
	}

	if len(ranges) == 0 {
		return "no changes"
	}
	return "lines " + strings.Join(ranges, ", ")
}
