package targets

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// Command runs an external program per event: either a binary (Path,
// invoked with the event's rewritten path as its sole argument) or a
// shell snippet (Raw, run via sh -c with FILE_PATH set in its
// environment). Exactly one of Path/Raw must be set.
type Command struct {
	base
	path    string
	raw     string
	timeout time.Duration
}

// NewCommand builds a Command target from its configuration entry.
func NewCommand(name string, cfg config.Target) (*Command, error) {
	b, err := newBase(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Path == "" && cfg.Raw == "" {
		return nil, fmt.Errorf("command target %s: one of path or raw is required", name)
	}
	if cfg.Path != "" && cfg.Raw != "" {
		return nil, fmt.Errorf("command target %s: path and raw are mutually exclusive", name)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Command{base: b, path: cfg.Path, raw: cfg.Raw, timeout: timeout}, nil
}

// Process implements Target: each event is run independently; a failing
// exec leaves that event out of the returned ids without returning an
// error, so one bad event doesn't block the rest of the batch.
func (c *Command) Process(events []*domain.ScanEvent) ([]string, error) {
	var succeeded []string

	for _, ev := range events {
		path := c.rewritePath(ev.FilePath)
		if err := c.run(path); err != nil {
			continue
		}
		succeeded = append(succeeded, ev.ID)
	}

	return succeeded, nil
}

func (c *Command) run(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if c.raw != "" {
		cmd = exec.CommandContext(ctx, "sh", "-c", c.raw)
		cmd.Env = append(cmd.Env, "FILE_PATH="+path)
	} else {
		cmd = exec.CommandContext(ctx, c.path, path)
	}

	return cmd.Run()
}
