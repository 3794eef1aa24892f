// Package pcode converts compiled scripts to and from a line-oriented
// assembly listing.
//
// Every instruction takes one line: an eight digit hex address, a tab, the
// mnemonic and its operands separated by ", ". Jumps name their target by
// label, and a "loc_XXXXXXXX:" line precedes every instruction some jump
// lands on.
package pcode

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/ncs"
	"github.com/yoremi/kotor-go/pkg/routines"
)

// LabelName returns the label used for a jump target.
func LabelName(offset int) string {
	return fmt.Sprintf("loc_%08x", offset)
}

// Encode writes p as a listing. ACTION routines are named through rt when
// it knows them; rt may be nil.
func Encode(w io.Writer, p *ncs.Program, rt *routines.Table) error {
	if err := p.Validate(); err != nil {
		return err
	}
	targets := sortedTargets(p)
	bw := bufio.NewWriter(w)
	next := 0
	for _, in := range p.Instructions {
		for next < len(targets) && targets[next] <= in.Offset {
			fmt.Fprintf(bw, "%s:\n", LabelName(targets[next]))
			next++
		}
		fmt.Fprintf(bw, "%08x\t%s\n", in.Offset, FormatInstruction(in, rt))
	}
	for ; next < len(targets); next++ {
		fmt.Fprintf(bw, "%s:\n", LabelName(targets[next]))
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	glog.V(2).Infof("pcode: wrote %d instructions, %d labels", len(p.Instructions), len(targets))
	return nil
}

func sortedTargets(p *ncs.Program) []int {
	set := p.Targets()
	out := make([]int, 0, len(set))
	for off := range set {
		out = append(out, off)
	}
	sort.Ints(out)
	return out
}

// FormatInstruction renders the mnemonic and operands of in.
func FormatInstruction(in ncs.Instruction, rt *routines.Table) string {
	ops := formatArgs(in, rt)
	if ops == "" {
		return in.Type.Mnemonic()
	}
	return in.Type.Mnemonic() + " " + ops
}

func formatArgs(in ncs.Instruction, rt *routines.Table) string {
	switch a := in.Args.(type) {
	case ncs.Offset:
		if t, ok := in.Target(); ok {
			return LabelName(t)
		}
		return strconv.Itoa(int(a.Value))
	case ncs.Copy:
		return join(int64(a.Offset), int64(a.Size))
	case ncs.ElemSize:
		return join(int64(a.Size))
	case ncs.IntConst:
		return join(int64(a.Value))
	case ncs.FloatConst:
		return strconv.FormatFloat(float64(a.Value), 'g', -1, 32)
	case ncs.StringConst:
		return strconv.Quote(a.Value)
	case ncs.ObjectConst:
		return join(int64(a.Value))
	case ncs.Call:
		name, ok := rt.Name(a.Routine)
		if !ok {
			name = strconv.Itoa(int(a.Routine))
		}
		return name + ", " + strconv.Itoa(int(a.ArgCount))
	case ncs.Destruct:
		return join(int64(a.Size), int64(a.Offset), int64(a.Keep))
	case ncs.StoreState:
		return join(int64(a.Stack), int64(a.Locals))
	}
	return ""
}

func join(vals ...int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ")
}
