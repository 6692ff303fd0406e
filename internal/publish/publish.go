// Package publish commits the rendered page and account table and pushes
// them to a git remote.
//
// The git command-line client does the work, so whatever credential helper,
// SSH agent or signing setup the user has configured for the repository
// applies unchanged.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotRepository is returned when the publish directory is not inside a
// git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Runner executes one git invocation in dir and returns its standard output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct {
	// Binary overrides the executable name. Empty means "git".
	Binary string
}

// Run implements [Runner]. A non-zero exit returns an error that includes
// the trimmed standard error output.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// Result describes what a publish did.
type Result struct {
	// Skipped is true when there was nothing to commit.
	Skipped   bool
	Committed bool
	Pushed    bool
}

// Git publishes the working tree at Dir.
type Git struct {
	Dir string

	// Remote and Branch are passed to git push when set. An empty Remote
	// with a Branch pushes to origin.
	Remote string
	Branch string

	// SkipUnchanged checks git status first and does nothing when the
	// tree is clean.
	SkipUnchanged bool

	// Runner defaults to [ExecRunner].
	Runner Runner
}

// Publish stages everything, commits with message, and pushes.
//
// Each failure is wrapped with the step that failed. A commit that git
// rejects because nothing changed is reported as Skipped, not as an error.
func (g *Git) Publish(ctx context.Context, message string) (Result, error) {
	var res Result

	if _, err := g.git(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrNotRepository, g.Dir, err)
	}

	if g.SkipUnchanged {
		out, err := g.git(ctx, "status", "--porcelain")
		if err != nil {
			return res, fmt.Errorf("git status: %w", err)
		}
		if len(bytes.TrimSpace(out)) == 0 {
			res.Skipped = true
			return res, nil
		}
	}

	if _, err := g.git(ctx, "add", "-A"); err != nil {
		return res, fmt.Errorf("git add: %w", err)
	}

	out, err := g.git(ctx, "commit", "-m", message)
	if err != nil {
		if nothingToCommit(out, err) {
			res.Skipped = true
			return res, nil
		}
		return res, fmt.Errorf("git commit: %w", err)
	}
	res.Committed = true

	if _, err := g.git(ctx, g.pushArgs()...); err != nil {
		return res, fmt.Errorf("git push: %w", err)
	}
	res.Pushed = true

	return res, nil
}

func (g *Git) pushArgs() []string {
	args := []string{"push"}
	remote := g.Remote
	if remote == "" && g.Branch != "" {
		remote = "origin"
	}
	if remote != "" {
		args = append(args, remote)
		if g.Branch != "" {
			args = append(args, g.Branch)
		}
	}
	return args
}

func (g *Git) git(ctx context.Context, args ...string) ([]byte, error) {
	r := g.Runner
	if r == nil {
		r = ExecRunner{}
	}
	return r.Run(ctx, g.Dir, args...)
}

// git commit prints this on stdout and exits 1 when the index matches HEAD.
func nothingToCommit(out []byte, err error) bool {
	const marker = "nothing to commit"
	return bytes.Contains(out, []byte(marker)) || strings.Contains(err.Error(), marker)
}

// Message returns the commit message for a run at now covering n accounts.
func Message(now time.Time, n int) string {
	return fmt.Sprintf("Update: %s (%d accounts)", now.UTC().Format(time.RFC3339), n)
}
