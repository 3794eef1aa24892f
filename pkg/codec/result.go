package codec

import (
	"fmt"
	"strings"
)

// Result is the outcome of one item in a batch: either a value or an error,
// never both.
type Result[T any] struct {
	Name  string
	Value T
	Err   error
}

// OK reports whether the item succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Kind classifies the item's failure.
func (r Result[T]) Kind() Kind { return KindOf(r.Err) }

// Report collects per-item results in input order.
type Report[T any] struct {
	Results []Result[T]
}

// Add appends one result.
func (rp *Report[T]) Add(r Result[T]) {
	rp.Results = append(rp.Results, r)
}

// Succeeded returns the number of items without an error.
func (rp *Report[T]) Succeeded() int {
	n := 0
	for _, r := range rp.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failed items.
func (rp *Report[T]) Failed() []Result[T] {
	var out []Result[T]
	for _, r := range rp.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Summary renders a one-line count plus one line per failure.
func (rp *Report[T]) Summary() string {
	var sb strings.Builder
	failed := rp.Failed()
	fmt.Fprintf(&sb, "%d ok, %d failed\n", len(rp.Results)-len(failed), len(failed))
	for _, r := range failed {
		fmt.Fprintf(&sb, "  %s [%s]: %v\n", r.Name, r.Kind(), r.Err)
	}
	return sb.String()
}
