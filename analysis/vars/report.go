// Copyright The varrec Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vars

import (
	"fmt"
	"io"
	"sort"

	"github.com/decompkit/varrec/analysis/ir"
	"github.com/decompkit/varrec/internal/formatutil"
)

func statusLabel(s Status) string {
	switch s {
	case StatusConverged:
		return formatutil.Green(s.String())
	case StatusDegraded:
		return formatutil.Yellow(s.String())
	case StatusFailed:
		return formatutil.Red(s.String())
	default:
		return s.String()
	}
}

// WriteFuncReport renders the recovered variables, bindings and constraints
// of one function in a deterministic order.
func WriteFuncReport(w io.Writer, fr *FuncResult) {
	fmt.Fprintf(w, "%s %s: %s\n", formatutil.Bold("function"), fr.Name, statusLabel(fr.Status))
	if fr.Status == StatusFailed {
		fmt.Fprintf(w, "  error: %s\n", fr.Err)
		return
	}
	fmt.Fprintf(w, "  %d ssa variable(s), %d canonical, %d block visit(s)\n",
		fr.NumVars(), fr.Unified.NumClasses(), fr.BlockVisits)

	fmt.Fprintf(w, "  %s\n", formatutil.Bold("variables"))
	for _, uv := range fr.Unified.Classes() {
		canon := fr.Var(uv.Canon)
		loc := canon.Storage.String()
		if uv.Kind == StackVar {
			loc = fmt.Sprintf("stack[%d:%d]", uv.Off, uv.Size)
		}
		line := fmt.Sprintf("    v%d %s members=%v", uv.Canon, loc, uv.Members)
		if uv.Param {
			line += " (arg)"
		}
		if uv.Conflicted {
			line += " " + formatutil.Yellow("(conflicted)")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "  %s\n", formatutil.Bold("bindings"))
	refs := make([]ir.NodeRef, 0, len(fr.Bindings))
	for ref := range fr.Bindings {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return fr.ix.RefLess(refs[i], refs[j]) })
	for _, ref := range refs {
		b := fr.Bindings[ref]
		switch {
		case b.Unresolved:
			fmt.Fprintf(w, "    %s: %s\n", ref, formatutil.Faint("unresolved"))
		case b.Def != NoVar:
			fmt.Fprintf(w, "    %s: def v%d uses %v\n", ref, b.Def, b.Uses)
		default:
			fmt.Fprintf(w, "    %s: uses %v\n", ref, b.Uses)
		}
	}

	fmt.Fprintf(w, "  %s\n", formatutil.Bold("constraints"))
	for _, c := range fr.Constraints {
		fmt.Fprintf(w, "    %s\n", c)
	}
}

// WriteProgramReport renders a summary of the whole run followed by the
// per-function reports, functions in name order.
func WriteProgramReport(w io.Writer, res *ProgramResult) {
	fmt.Fprintf(w, "%s %s (%d function(s), %s)\n",
		formatutil.Bold("variable recovery run"), res.RunID, len(res.Functions), res.Time)

	names := make([]string, 0, len(res.Functions))
	for name := range res.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		WriteFuncReport(w, res.Functions[name])
	}
}
