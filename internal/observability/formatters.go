// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/resume-retriever/internal/db"
	"github.com/jonathan/resume-retriever/internal/scrape"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func outcomeIcon(o scrape.Outcome) string {
	switch o {
	case scrape.OutcomeSuccess:
		return "✅"
	case scrape.OutcomeBlocked:
		return "⛔"
	case scrape.OutcomeNotFound:
		return "🔍"
	default:
		return "❌"
	}
}

// PrintResult outputs one scrape result.
func (p *Printer) PrintResult(res scrape.Result) {
	var sb strings.Builder

	if res.Source != "" {
		sb.WriteString(fmt.Sprintf("Source:    %s\n", res.Source))
	}
	sb.WriteString(fmt.Sprintf("Session:   %s\n", res.SessionID))
	if res.Link != "" {
		sb.WriteString(fmt.Sprintf("Link:      %s\n", res.Link))
		sb.WriteString(fmt.Sprintf("Strategy:  %s\n", res.Strategy))
	}

	switch res.Outcome {
	case scrape.OutcomeSuccess:
		sb.WriteString(fmt.Sprintf("Saved:     %s\n", res.Filepath))
	default:
		sb.WriteString(fmt.Sprintf("Kind:      %s\n", res.Kind))
		if res.Reason != "" {
			sb.WriteString(fmt.Sprintf("Reason:    %s\n", res.Reason))
		}
		if res.Retryable() {
			sb.WriteString("Retry:     safe to retry later\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Duration:  %s", res.Duration.Round(time.Millisecond)))

	p.printBox(fmt.Sprintf("%s %s", outcomeIcon(res.Outcome), strings.ToUpper(string(res.Outcome))), sb.String())
}

// PrintSummary outputs outcome counts for a batch. Nothing is printed for fewer than two results.
func (p *Printer) PrintSummary(results []scrape.Result) {
	if len(results) < 2 {
		return
	}

	counts := map[scrape.Outcome]int{}
	retryable := 0
	for _, r := range results {
		counts[r.Outcome]++
		if r.Retryable() {
			retryable++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total:      %d\n", len(results)))
	for _, o := range []scrape.Outcome{scrape.OutcomeSuccess, scrape.OutcomeBlocked, scrape.OutcomeNotFound, scrape.OutcomeFailure} {
		sb.WriteString(fmt.Sprintf("%-11s %d\n", string(o)+":", counts[o]))
	}
	sb.WriteString(fmt.Sprintf("Retryable:  %d", retryable))

	p.printBox("BATCH SUMMARY", sb.String())
}

// PrintCandidates outputs the extraction decision and every trusted URL in the email.
func (p *Printer) PrintCandidates(strategy, link string, found bool, all []string) {
	var sb strings.Builder

	if found {
		sb.WriteString(fmt.Sprintf("Strategy:  %s\n", strategy))
		sb.WriteString(fmt.Sprintf("Link:      %s\n", link))
	} else {
		sb.WriteString("No resume link matched\n")
	}

	sb.WriteString(fmt.Sprintf("\nTrusted URLs in email: %d", len(all)))
	count := min(len(all), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("\n  • %s", all[i]))
	}
	if len(all) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(all)-maxItemsToShow))
	}

	p.printBox("RESUME LINK", sb.String())
}

// PrintAttempts outputs recorded attempts, newest first.
func (p *Printer) PrintAttempts(attempts []db.Attempt) {
	if len(attempts) == 0 {
		p.printBox("ATTEMPT HISTORY", "No attempts recorded")
		return
	}

	var sb strings.Builder
	for i, a := range attempts {
		sb.WriteString(fmt.Sprintf("%s  %-9s %s\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Outcome, a.Source))
		detail := a.Filename
		if a.Outcome != db.OutcomeSuccess {
			detail = a.Kind
			if a.Reason != "" {
				detail += ": " + a.Reason
			}
		}
		sb.WriteString(fmt.Sprintf("    %s", detail))
		if i < len(attempts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("ATTEMPT HISTORY (%d)", len(attempts)), sb.String())
}
