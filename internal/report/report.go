// Package report writes a Markdown summary of the account table.
//
// The report is committed next to the HTML page so the repository's own
// README viewer shows account health without serving anything. Values that
// come from the remote profile (usernames in particular) pass through a
// strict HTML sanitizer before they reach the Markdown.
package report

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/render"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

const checkedAtLayout = "2006-01-02 15:04 MST"

var statusIcons = map[account.Status]string{
	account.StatusActive:  "🟢",
	account.StatusInvalid: "🔴",
	account.StatusUnknown: "🟠",
}

// Writer renders reports. The zero value is not usable; call [NewWriter].
type Writer struct {
	sanitizer *bluemonday.Policy
}

// NewWriter returns a Writer with a strict sanitizer.
func NewWriter() *Writer {
	return &Writer{sanitizer: bluemonday.StrictPolicy()}
}

// Write renders the report for rc to w.
func (rw *Writer) Write(w io.Writer, rc render.Context) error {
	md := markdown.NewMarkdown(w)

	rw.writeHeader(md, rc)
	rw.writeAccounts(md, rc)
	rw.writeAttention(md, rc)
	rw.writeFooter(md)

	if err := md.Build(); err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	return nil
}

// WriteFile renders the report and atomically replaces path.
func (rw *Writer) WriteFile(path string, rc render.Context) error {
	var buf bytes.Buffer
	if err := rw.Write(&buf, rc); err != nil {
		return err
	}
	if err := store.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (rw *Writer) writeHeader(md *markdown.Markdown, rc render.Context) {
	total := len(rc.Table)
	active := rc.Table.ActiveCount()

	md.H1("Account Status")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Accounts", fmt.Sprint(total)},
			{"Active", fmt.Sprint(active)},
			{"Last checked", rc.CheckedAt.UTC().Format(checkedAtLayout)},
			{"Refresh", fmt.Sprintf("every %d hour(s)", rc.IntervalHours)},
		},
	})
	md.PlainText("")

	switch {
	case total == 0:
		md.Note("No accounts configured.")
	case active == total:
		md.Tip("All accounts active.")
	case active == 0:
		md.Cautionf("No account is active. %d account(s) failed their last check.", total)
	default:
		md.Warningf("%d of %d account(s) need attention.", total-active, total)
	}
	md.PlainText("")
}

func (rw *Writer) writeAccounts(md *markdown.Markdown, rc render.Context) {
	md.H2("Accounts")
	md.PlainText("")

	if len(rc.Table) == 0 {
		md.PlainText("No accounts recorded yet.")
		md.PlainText("")
		return
	}

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(rc.Table))
	for _, p := range ordered(rc.Table) {
		status := p.Status.Normalize()
		uptime := "-"
		if u, ok := rc.Uptime[p.Identifier]; ok {
			uptime = fmt.Sprintf("%.1f%%", u*100)
		}
		lastError := account.Reason(p.LastError).Display()
		if lastError == "" {
			lastError = "-"
		}
		rows = append(rows, []string{
			rw.cell(p.Index),
			rw.cell(p.Tag),
			rw.cell(p.AccountID),
			rw.cell(p.CreationDate),
			statusIcons[status] + " " + title.String(status.String()),
			rw.cell(lastError),
			uptime,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Index", "Tag", "Account ID", "Created", "Status", "Last error", "Uptime"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (rw *Writer) writeAttention(md *markdown.Markdown, rc render.Context) {
	var items []string
	for _, p := range ordered(rc.Table) {
		if p.Status == account.StatusActive {
			continue
		}
		reason := account.Reason(p.LastError).Display()
		if reason == "" {
			reason = p.Status.Normalize().String()
		}
		items = append(items, fmt.Sprintf("%s (%s): %s", rw.cell(p.Tag), rw.cell(p.Identifier), rw.cell(reason)))
	}
	if len(items) == 0 {
		return
	}

	md.H2("Needs attention")
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

func (rw *Writer) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by tokenwatch*")
}

// cell sanitizes a remote value for a Markdown table cell.
func (rw *Writer) cell(s string) string {
	s = rw.sanitizer.Sanitize(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// ordered lists card-bearing profiles in page order, then the rest by
// identifier.
func ordered(table account.Table) []account.Profile {
	out := render.Displayed(table)

	var rest []account.Profile
	for _, p := range table {
		if !p.HasIndex() {
			rest = append(rest, p)
		}
	}
	slices.SortFunc(rest, func(a, b account.Profile) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})
	return append(out, rest...)
}
