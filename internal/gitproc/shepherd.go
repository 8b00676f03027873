package gitproc

import (
	"context"
	"io"
	"os/exec"
	"sync/atomic"
)

type RunOpts struct {
	Environ   []string  // use exactly this environment
	ExtraEnv  []string  // appended to the sanitized default
	RepoPath  string    // working directory (the git worktree root)
	Stderr    io.Writer // nil captures into a bounded buffer on error
	Stdout    io.Writer
	Stdin     io.Reader
	Detached  bool
	NoSetpgid bool
}

// Shepherd creates Commands with a consistent, sanitized environment and
// tracks how many children are currently running.
type Shepherd interface {
	NewFromOptions(ctx context.Context, opt *RunOpts, name string, arg ...string) *Command
	New(ctx context.Context, repoPath string, name string, arg ...string) *Command
	ProcessesCount() int32
}

type shepherd struct {
	count int32
}

func (s *shepherd) inc() int32 { return atomic.AddInt32(&s.count, 1) }
func (s *shepherd) dec() int32 { return atomic.AddInt32(&s.count, -1) }

func (s *shepherd) ProcessesCount() int32 {
	return atomic.LoadInt32(&s.count)
}

func NewShepherd() Shepherd {
	return &shepherd{}
}

func (s *shepherd) New(ctx context.Context, repoPath string, name string, arg ...string) *Command {
	return s.NewFromOptions(ctx, &RunOpts{RepoPath: repoPath}, name, arg...)
}

func (s *shepherd) NewFromOptions(ctx context.Context, opt *RunOpts, name string, arg ...string) *Command {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = opt.RepoPath
	if len(opt.Environ) == 0 {
		cmd.Env = append(cmd.Env, Environ()...)
	} else {
		cmd.Env = append(cmd.Env, opt.Environ...)
	}
	cmd.Env = append(cmd.Env, "GIT_IMERGE=1")
	if len(opt.ExtraEnv) != 0 {
		cmd.Env = append(cmd.Env, opt.ExtraEnv...)
	}
	cmd.Stderr = opt.Stderr
	cmd.Stdout = opt.Stdout
	cmd.Stdin = opt.Stdin
	c := &Command{rawCmd: cmd, context: ctx, s: s, detached: opt.Detached}
	if !opt.NoSetpgid {
		setSysProcAttribute(cmd, c.detached)
	}
	return c
}

var sd = NewShepherd()

// New creates a git subprocess rooted at repoPath using the default shepherd.
func New(ctx context.Context, repoPath string, name string, arg ...string) *Command {
	return sd.New(ctx, repoPath, name, arg...)
}

// NewFromOptions creates a git subprocess with full control over its I/O
// and environment, using the default shepherd.
func NewFromOptions(ctx context.Context, opt *RunOpts, name string, arg ...string) *Command {
	return sd.NewFromOptions(ctx, opt, name, arg...)
}

func ProcessesCount() int32 {
	return sd.ProcessesCount()
}
