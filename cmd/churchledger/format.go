package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
)

// euro formats an amount with German separators, for example 1.234,50 €.
func euro(p *message.Printer, d decimal.Decimal) string {
	return p.Sprintf("%.2f €", d.Round(2).InexactFloat64())
}

func percent(p *message.Printer, d decimal.Decimal) string {
	return p.Sprintf("%.2f %%", d.InexactFloat64())
}

func newTable(w io.Writer, header ...any) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(header) > 0 {
		row(tw, header...)
	}
	return tw
}

func row(w io.Writer, cells ...any) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
