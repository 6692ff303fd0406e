// Package render fills the status page template.
//
// A template is plain HTML containing named placeholders. [Substitute] swaps
// each placeholder for its value in a single pass; a placeholder that does
// not appear in the template is ignored, so the region it would have filled
// is simply absent from the output. The HTML fragments themselves are built
// with html/template so every account field is escaped.
package render

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jpalmerr/tokenwatch/dashboard"
	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

// Placeholder tokens recognized in page templates.
const (
	StatusPlaceholder   = "{{STATUS}}"
	AccountsPlaceholder = "{{ACCOUNTS}}"
)

// checkedAtLayout renders e.g. "Oct 17, 2026, 09:05 AM".
const checkedAtLayout = "Jan 2, 2006, 03:04 PM"

// Status colours.
const (
	ColorActive  = "#43b581"
	ColorInvalid = "#f04747"
	ColorUnknown = "#faa61a"
)

// Context is everything one render needs.
type Context struct {
	Table         account.Table
	CheckedAt     time.Time
	IntervalHours int

	// Uptime maps identifiers to the fraction of successful probes in
	// [0, 1]. Accounts without an entry show no uptime line.
	Uptime map[string]float64
}

var (
	statusTmpl = template.Must(template.New("status").Parse(`<div class="status-section">
        <p><strong>accounts:</strong> <span style="color: {{.Color}};">● {{.Active}}/{{.Total}} active</span></p>
        <p><strong>last checked:</strong> {{.CheckedAt}} UTC</p>
        <p><em>updated automatically every {{.IntervalHours}} hour(s)</em></p>
    </div>`))

	cardsTmpl = template.Must(template.New("cards").Parse(`{{range .}}
        <div class="account-card {{.Class}}">
            <h2>{{.Index}}</h2>
            <p><span class="label">tag:</span> {{.Tag}}</p>
            <p><span class="label">id:</span> {{.AccountID}}</p>
            <p><span class="label">created:</span> {{.CreationDate}}</p>
            <p><span class="label">status:</span> <span style="color: {{.Color}};">● {{.Label}}</span></p>
            {{- if .Error}}
            <p class="error"><span class="label">error:</span> {{.Error}}</p>
            {{- end}}
            {{- if .Uptime}}
            <p><span class="label">uptime:</span> {{.Uptime}}</p>
            {{- end}}
        </div>
{{- end}}`))
)

type summaryView struct {
	Total         int
	Active        int
	Color         template.CSS
	CheckedAt     string
	IntervalHours int
}

type cardView struct {
	Class        string
	Index        string
	Tag          string
	AccountID    string
	CreationDate string
	Label        string
	Color        template.CSS
	Error        string
	Uptime       string
}

// Substitute replaces every placeholder key of values found in tmpl with
// its value. Replacement is a single left-to-right pass, so inserted values
// are never themselves scanned for placeholders.
func Substitute(tmpl string, values map[string]string) string {
	if len(values) == 0 {
		return tmpl
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, values[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Render fills tmpl from rc.
func Render(tmpl string, rc Context) (string, error) {
	summary, err := Summary(rc)
	if err != nil {
		return "", err
	}
	cards, err := Cards(rc)
	if err != nil {
		return "", err
	}
	return Substitute(tmpl, map[string]string{
		StatusPlaceholder:   summary,
		AccountsPlaceholder: cards,
	}), nil
}

// RenderFile renders the template at templatePath into outputPath. When the
// template file does not exist the embedded default template is used. The
// output is replaced atomically.
func RenderFile(templatePath, outputPath string, rc Context) error {
	tmpl, err := readTemplate(templatePath)
	if err != nil {
		return err
	}
	page, err := Render(tmpl, rc)
	if err != nil {
		return err
	}
	if err := store.WriteFileAtomic(outputPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

func readTemplate(path string) (string, error) {
	if path == "" {
		return dashboard.Template(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return dashboard.Template(), nil
	}
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

// Summary renders the status region: account and active counts, the run
// time in UTC, and the refresh interval.
func Summary(rc Context) (string, error) {
	total := len(rc.Table)
	active := rc.Table.ActiveCount()

	color := ColorUnknown
	switch {
	case total > 0 && active == total:
		color = ColorActive
	case total > 0 && active == 0:
		color = ColorInvalid
	}

	var buf bytes.Buffer
	err := statusTmpl.Execute(&buf, summaryView{
		Total:         total,
		Active:        active,
		Color:         template.CSS(color),
		CheckedAt:     rc.CheckedAt.UTC().Format(checkedAtLayout),
		IntervalHours: rc.IntervalHours,
	})
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

// Cards renders one card per account that has a numeric index, highest
// index first. Ties are broken by identifier.
func Cards(rc Context) (string, error) {
	profiles := Displayed(rc.Table)
	title := cases.Title(language.English)

	views := make([]cardView, 0, len(profiles))
	for _, p := range profiles {
		status := p.Status.Normalize()
		v := cardView{
			Class:        status.String(),
			Index:        p.Index,
			Tag:          p.Tag,
			AccountID:    p.AccountID,
			CreationDate: p.CreationDate,
			Label:        title.String(status.String()),
			Color:        template.CSS(StatusColor(status)),
			Error:        account.Reason(p.LastError).Display(),
		}
		if u, ok := rc.Uptime[p.Identifier]; ok {
			v.Uptime = fmt.Sprintf("%.1f%%", u*100)
		}
		views = append(views, v)
	}

	var buf bytes.Buffer
	if err := cardsTmpl.Execute(&buf, views); err != nil {
		return "", fmt.Errorf("render cards: %w", err)
	}
	return buf.String(), nil
}

// Displayed returns the profiles that get a card, in display order.
func Displayed(table account.Table) []account.Profile {
	out := make([]account.Profile, 0, len(table))
	for _, p := range table {
		if p.HasIndex() {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b account.Profile) int {
		if c := cmp.Compare(*b.IndexNumber, *a.IndexNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Identifier, b.Identifier)
	})
	return out
}

// StatusColor returns the card colour for s.
func StatusColor(s account.Status) string {
	switch s {
	case account.StatusActive:
		return ColorActive
	case account.StatusInvalid:
		return ColorInvalid
	default:
		return ColorUnknown
	}
}
