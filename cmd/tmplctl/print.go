package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

func printPlan(w io.Writer, p *promote.Preview) {
	target := p.Source
	if p.Destination != "" {
		target = p.Source + " -> " + p.Destination
	}
	fmt.Fprintf(w, "\n  %sPlan for %s%s (%d templates in snapshot)\n", clrBold, target, clrReset, len(p.Snapshot))

	if len(p.Malformed) > 0 {
		fmt.Fprintf(w, "  %sIgnored (malformed notes):%s %v\n", clrYellow, clrReset, p.Malformed)
	}
	if len(p.Excluded) > 0 {
		fmt.Fprintf(w, "  %sExcluded by filter:%s %v\n", clrGray, clrReset, p.Excluded)
	}
	if len(p.Plan) == 0 {
		fmt.Fprintf(w, "  %sNothing to do.%s\n\n", clrGreen, clrReset)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ACTION\tTEMPLATE\tGROUP")
	for _, act := range p.Plan {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", act.Kind, act.Name, act.Group)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func printReport(w io.Writer, r *promote.RunReport) {
	color := clrGreen
	if !r.OK() {
		color = clrYellow
	}
	fmt.Fprintf(w, "\n  %s%s%s\n", color, r.Summary(), clrReset)
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  %s✗%s %s: %s\n", clrRed, clrReset, f.Action, f.Reason)
	}

	counts := map[lifecycle.Status]int{}
	for _, a := range r.FinalState {
		counts[a.Status]++
	}
	fmt.Fprintf(w, "  Final state: %d draft, %d published, %d retired\n\n",
		counts[lifecycle.Draft], counts[lifecycle.Published], counts[lifecycle.Retired])
}
