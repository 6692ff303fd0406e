package publish

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner records invocations and returns scripted responses keyed by the
// git subcommand.
type fakeRunner struct {
	calls [][]string
	dirs  []string
	out   map[string]string
	errs  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	f.dirs = append(f.dirs, dir)
	return []byte(f.out[args[0]]), f.errs[args[0]]
}

func (f *fakeRunner) subcommands() []string {
	var names []string
	for _, c := range f.calls {
		names = append(names, c[0])
	}
	return names
}

func TestMessage(t *testing.T) {
	now := time.Date(2026, 10, 17, 11, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	got := Message(now, 3)
	want := "Update: 2026-10-17T09:00:00Z (3 accounts)"
	if got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestPublish_FullSequence(t *testing.T) {
	r := &fakeRunner{}
	g := &Git{Dir: "/repo", Remote: "origin", Branch: "main", Runner: r}

	res, err := g.Publish(context.Background(), "Update: x (1 accounts)")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Committed || !res.Pushed || res.Skipped {
		t.Errorf("Publish() = %+v, want committed and pushed", res)
	}

	want := []string{"rev-parse", "add", "commit", "push"}
	if strings.Join(r.subcommands(), ",") != strings.Join(want, ",") {
		t.Errorf("git calls = %v, want %v", r.subcommands(), want)
	}
	if got := strings.Join(r.calls[2], " "); got != "commit -m Update: x (1 accounts)" {
		t.Errorf("commit args = %q", got)
	}
	if got := strings.Join(r.calls[3], " "); got != "push origin main" {
		t.Errorf("push args = %q", got)
	}
	for _, d := range r.dirs {
		if d != "/repo" {
			t.Errorf("git ran in %q, want /repo", d)
		}
	}
}

func TestPublish_SkipUnchanged(t *testing.T) {
	r := &fakeRunner{out: map[string]string{"status": "\n"}}
	g := &Git{Dir: "/repo", SkipUnchanged: true, Runner: r}

	res, err := g.Publish(context.Background(), "msg")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Skipped || res.Committed {
		t.Errorf("Publish() = %+v, want skipped", res)
	}
	if strings.Join(r.subcommands(), ",") != "rev-parse,status" {
		t.Errorf("git calls = %v", r.subcommands())
	}
}

func TestPublish_SkipUnchangedWithChanges(t *testing.T) {
	r := &fakeRunner{out: map[string]string{"status": " M index.html\n"}}
	g := &Git{Dir: "/repo", SkipUnchanged: true, Runner: r}

	res, err := g.Publish(context.Background(), "msg")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Pushed {
		t.Errorf("Publish() = %+v, want pushed", res)
	}
	if got := strings.Join(r.calls[len(r.calls)-1], " "); got != "push" {
		t.Errorf("push args = %q, want bare push", got)
	}
}

func TestPublish_NothingToCommit(t *testing.T) {
	r := &fakeRunner{
		out:  map[string]string{"commit": "On branch main\nnothing to commit, working tree clean\n"},
		errs: map[string]error{"commit": errors.New("exit status 1")},
	}
	g := &Git{Dir: "/repo", Runner: r}

	res, err := g.Publish(context.Background(), "msg")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Skipped {
		t.Errorf("Publish() = %+v, want skipped", res)
	}
}

func TestPublish_StepErrors(t *testing.T) {
	tests := []struct {
		step     string
		wantText string
		wantRes  Result
	}{
		{"add", "git add", Result{}},
		{"commit", "git commit", Result{}},
		{"push", "git push", Result{Committed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			r := &fakeRunner{errs: map[string]error{tt.step: errors.New("boom")}}
			g := &Git{Dir: "/repo", Runner: r}

			res, err := g.Publish(context.Background(), "msg")
			if err == nil {
				t.Fatal("Publish() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantText) || !strings.Contains(err.Error(), "boom") {
				t.Errorf("error = %v, want %q with cause", err, tt.wantText)
			}
			if res != tt.wantRes {
				t.Errorf("Result = %+v, want %+v", res, tt.wantRes)
			}
		})
	}
}

func TestPublish_NotRepository(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"rev-parse": errors.New("fatal: not a git repository")}}
	g := &Git{Dir: "/tmp/nope", Runner: r}

	_, err := g.Publish(context.Background(), "msg")
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("error = %v, want ErrNotRepository", err)
	}
	if len(r.calls) != 1 {
		t.Errorf("expected to stop after rev-parse, got %v", r.subcommands())
	}
}

func TestPushArgs(t *testing.T) {
	tests := []struct {
		remote, branch string
		want           string
	}{
		{"", "", "push"},
		{"upstream", "", "push upstream"},
		{"", "gh-pages", "push origin gh-pages"},
		{"upstream", "gh-pages", "push upstream gh-pages"},
	}
	for _, tt := range tests {
		g := &Git{Remote: tt.remote, Branch: tt.branch}
		if got := strings.Join(g.pushArgs(), " "); got != tt.want {
			t.Errorf("pushArgs(%q, %q) = %q, want %q", tt.remote, tt.branch, got, tt.want)
		}
	}
}

func TestPublish_RealGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	work := filepath.Join(root, "work")

	run := func(dir string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "HOME="+root)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run(root, "init", "--bare", remote)
	run(root, "init", work)
	run(work, "config", "user.email", "bot@example.com")
	run(work, "config", "user.name", "bot")
	run(work, "config", "commit.gpgsign", "false")
	run(work, "remote", "add", "origin", remote)

	if err := os.WriteFile(filepath.Join(work, "index.html"), []byte("<p>hi</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := &Git{Dir: work, Remote: "origin", Branch: "HEAD", SkipUnchanged: true}
	ctx := context.Background()

	res, err := g.Publish(ctx, Message(time.Now(), 1))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Pushed {
		t.Fatalf("Publish() = %+v, want pushed", res)
	}

	res, err = g.Publish(ctx, Message(time.Now(), 1))
	if err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	if !res.Skipped {
		t.Errorf("second Publish() = %+v, want skipped", res)
	}
}

func TestExecRunner_IncludesStderr(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	_, err := ExecRunner{}.Run(context.Background(), t.TempDir(), "rev-parse", "--is-inside-work-tree")
	if err == nil {
		t.Skip("temp dir is inside a git work tree")
	}
	if !strings.Contains(err.Error(), "not a git repository") {
		t.Errorf("error = %v, want stderr text", err)
	}
}
