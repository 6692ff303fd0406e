package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/render"
)

func intPtr(n int) *int { return &n }

func sampleContext() render.Context {
	return render.Context{
		Table: account.Table{
			"7": {
				Identifier:   "7",
				Index:        "7th index",
				IndexNumber:  intPtr(7),
				Tag:          "@7abc",
				AccountID:    "175928847299117063",
				CreationDate: "Saturday, April 30, 2016 at 11:18:25 AM UTC",
				Status:       account.StatusActive,
			},
			"2": {
				Identifier:   "2",
				Index:        "2nd index",
				IndexNumber:  intPtr(2),
				Tag:          "@unknown",
				AccountID:    "unknown",
				CreationDate: "unknown",
				Status:       account.StatusInvalid,
				LastError:    "unauthorized",
			},
			"main": {
				Identifier: "main",
				Index:      "Unknown index",
				Tag:        "@mainacct",
				Status:     account.StatusActive,
			},
		},
		CheckedAt:     time.Date(2026, 10, 17, 9, 5, 0, 0, time.UTC),
		IntervalHours: 2,
		Uptime:        map[string]float64{"7": 1},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter().Write(&buf, sampleContext()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Account Status",
		"2026-10-17 09:05 UTC",
		"every 2 hour(s)",
		"## Accounts",
		"🟢 Active",
		"🔴 Invalid",
		"100.0%",
		"## Needs attention",
		"@unknown (2): unauthorized",
		"[!WARNING]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// indexed accounts first in page order, then the rest
	i7 := strings.Index(out, "@7abc")
	i2 := strings.Index(out, "2nd index")
	iMain := strings.Index(out, "@mainacct")
	if !(i7 < i2 && i2 < iMain) {
		t.Errorf("unexpected row order: 7=%d 2=%d main=%d", i7, i2, iMain)
	}
}

func TestWrite_AllActive(t *testing.T) {
	rc := render.Context{
		Table:         account.Table{"1": {Identifier: "1", IndexNumber: intPtr(1), Tag: "@1a", Status: account.StatusActive}},
		CheckedAt:     time.Now(),
		IntervalHours: 1,
	}

	var buf bytes.Buffer
	if err := NewWriter().Write(&buf, rc); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "[!TIP]") {
		t.Errorf("expected tip alert:\n%s", out)
	}
	if strings.Contains(out, "Needs attention") {
		t.Errorf("no attention section expected:\n%s", out)
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter().Write(&buf, render.Context{Table: account.Table{}, IntervalHours: 1}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "No accounts recorded yet.") {
		t.Errorf("expected empty message:\n%s", out)
	}
	if !strings.Contains(out, "[!NOTE]") {
		t.Errorf("expected note alert:\n%s", out)
	}
}

func TestWrite_SanitizesRemoteValues(t *testing.T) {
	rc := render.Context{
		Table: account.Table{
			"1": {Identifier: "1", IndexNumber: intPtr(1), Tag: "@1<img src=x onerror=alert(1)>|evil", Status: account.StatusInvalid, LastError: "forbidden"},
		},
		IntervalHours: 1,
	}

	var buf bytes.Buffer
	if err := NewWriter().Write(&buf, rc); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Contains(out, "<img") || strings.Contains(out, "onerror") {
		t.Errorf("markup not stripped:\n%s", out)
	}
	if !strings.Contains(out, "evil") {
		t.Errorf("text around markup should survive:\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "STATUS.md")

	if err := NewWriter().WriteFile(path, sampleContext()); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Account Status") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}
