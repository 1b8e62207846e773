// Package email renders run summary messages. Delivery lives in the ses and
// noop subpackages.
package email

import (
	"fmt"
	"html"
	"strings"

	"polgen/internal/domain"
)

// Message is a rendered summary email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// maxListedFailures caps the failures listed in the body.
const maxListedFailures = 20

// RunSummary renders the summary of a finished run. reportURL may be empty.
func RunSummary(rep *domain.BatchReport, reportURL string) Message {
	s := rep.Summary
	subject := fmt.Sprintf("POL run %s: %d succeeded, %d failed", shortID(rep), s.Succeeded, s.Failed)
	switch {
	case rep.Aborted:
		subject = fmt.Sprintf("POL run %s aborted: %d succeeded, %d not attempted", shortID(rep), s.Succeeded, s.NotAttempted)
	case rep.DryRun:
		subject = fmt.Sprintf("POL dry run %s: %d validated, %d failed", shortID(rep), s.Validated, s.Failed)
	}

	failures := failedResults(rep)

	var text strings.Builder
	fmt.Fprintf(&text, "Run %s finished at %s.\n\n", rep.RunID, rep.FinishedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&text, "Total: %d\nSucceeded: %d\nFailed: %d\nNot attempted: %d\nSkipped duplicates: %d\n",
		s.Total, s.Succeeded, s.Failed, s.NotAttempted, s.Skipped)
	if rep.DryRun {
		fmt.Fprintf(&text, "Validated (dry run): %d\n", s.Validated)
	}
	if rep.Aborted {
		fmt.Fprintf(&text, "\nThe run was aborted: %s\n", rep.AbortReason)
	}
	if len(failures) > 0 {
		text.WriteString("\nFailures:\n")
		for _, f := range failures {
			fmt.Fprintf(&text, "  row %d %s: %s\n", f.Index+1, f.Identifier, failureMessage(f))
		}
		if n := countFailures(rep) - len(failures); n > 0 {
			fmt.Fprintf(&text, "  ... and %d more\n", n)
		}
	}
	if reportURL != "" {
		fmt.Fprintf(&text, "\nFull report: %s\n", reportURL)
	}

	return Message{Subject: subject, Text: text.String(), HTML: buildSummaryHTML(rep, failures, reportURL)}
}

func buildSummaryHTML(rep *domain.BatchReport, failures []domain.SubmissionResult, reportURL string) string {
	s := rep.Summary
	var rows strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&rows, `<tr><td>%d</td><td>%s</td><td>%s</td></tr>`,
			f.Index+1, html.EscapeString(f.Identifier), html.EscapeString(failureMessage(f)))
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px;">
`)
	fmt.Fprintf(&b, `  <h2 style="color: #333;">POL run %s</h2>
  <table style="border-collapse: collapse;">
    <tr><td>Total</td><td>%d</td></tr>
    <tr><td>Succeeded</td><td>%d</td></tr>
    <tr><td>Failed</td><td>%d</td></tr>
    <tr><td>Not attempted</td><td>%d</td></tr>
    <tr><td>Skipped duplicates</td><td>%d</td></tr>
  </table>
`, html.EscapeString(rep.RunID.String()), s.Total, s.Succeeded, s.Failed, s.NotAttempted, s.Skipped)
	if rep.Aborted {
		fmt.Fprintf(&b, "  <p style=\"color: #b91c1c;\">The run was aborted: %s</p>\n", html.EscapeString(rep.AbortReason))
	}
	if rows.Len() > 0 {
		fmt.Fprintf(&b, "  <h3>Failures</h3>\n  <table>\n    <tr><th>Row</th><th>Identifier</th><th>Error</th></tr>\n    %s\n  </table>\n", rows.String())
	}
	if reportURL != "" {
		fmt.Fprintf(&b, "  <p><a href=\"%s\">Download the full report</a></p>\n", html.EscapeString(reportURL))
	}
	b.WriteString("</body>\n</html>")
	return b.String()
}

func shortID(rep *domain.BatchReport) string {
	return rep.RunID.String()[:8]
}

func failedResults(rep *domain.BatchReport) []domain.SubmissionResult {
	var out []domain.SubmissionResult
	for _, r := range rep.Results {
		if r.Status.IsFailure() {
			out = append(out, r)
			if len(out) == maxListedFailures {
				break
			}
		}
	}
	return out
}

func countFailures(rep *domain.BatchReport) int {
	n := 0
	for _, r := range rep.Results {
		if r.Status.IsFailure() {
			n++
		}
	}
	return n
}

func failureMessage(r domain.SubmissionResult) string {
	if r.Error == nil {
		return string(r.Status)
	}
	return r.Error.Message
}
