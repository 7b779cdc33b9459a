package upstream

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Command pairs an origin with the command line that launches its bundler.
// An empty Argv means the origin is managed externally and is only waited
// on, never started or stopped.
type Command struct {
	Origin Origin
	Argv   []string
	Env    []string
}

// Manager starts the upstream bundlers as child processes, waits for them to
// become reachable before the aggregation server accepts traffic, and cleans
// up processes and scratch files on shutdown.
type Manager struct {
	logger  logrus.FieldLogger
	fs      afero.Fs
	cmds    []*exec.Cmd
	workDir string

	stopGrace time.Duration
}

// NewManager returns a Manager writing scratch files through fs.
func NewManager(logger logrus.FieldLogger, fs afero.Fs) *Manager {
	return &Manager{logger: logger, fs: fs, stopGrace: 5 * time.Second}
}

// WorkDir returns the scratch directory shared with the child bundlers. It
// is empty until Start has run.
func (m *Manager) WorkDir() string { return m.workDir }

// Start creates the scratch directory and launches every command that has an
// Argv. Children inherit the parent environment plus the per-command extras
// and BUNDLEMUX_WORK_DIR.
func (m *Manager) Start(ctx context.Context, commands []Command) error {
	workDir, err := afero.TempDir(m.fs, "", "bundlemux")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	m.workDir = workDir

	for _, c := range commands {
		if len(c.Argv) == 0 {
			m.logger.WithField("upstream", c.Origin.Name).Debug("No command configured, assuming externally managed")
			continue
		}
		cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...) //nolint:gosec
		cmd.Env = append(os.Environ(), c.Env...)
		cmd.Env = append(cmd.Env, "BUNDLEMUX_WORK_DIR="+m.workDir)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("starting upstream %s: %w", c.Origin.Name, err)
		}
		m.logger.WithFields(logrus.Fields{
			"upstream": c.Origin.Name,
			"pid":      cmd.Process.Pid,
		}).Info("Started upstream bundler")
		m.cmds = append(m.cmds, cmd)
	}
	return nil
}

// WaitReady blocks until every origin answers HTTP on its base URL, or until
// ctx is done. Any response counts, error statuses included; readiness means
// reachable, not healthy.
func (m *Manager) WaitReady(ctx context.Context, origins ...Origin) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for _, o := range origins {
		if err := waitReady(ctx, m.logger, client, o); err != nil {
			return err
		}
	}
	return nil
}

func waitReady(ctx context.Context, logger logrus.FieldLogger, client *http.Client, o Origin) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL, nil)
		if err != nil {
			return fmt.Errorf("waiting for upstream %s: %w", o.Name, err)
		}
		res, err := client.Do(req)
		if err == nil {
			_ = res.Body.Close()
			logger.WithField("upstream", o.Name).Debug("Upstream is reachable")
			return nil
		}
		logger.WithField("upstream", o.Name).WithError(err).Debug("Upstream not reachable yet")

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for upstream %s: %w", o.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop interrupts every child, waits out the grace period, and removes the
// scratch directory. Children that ignore the interrupt are killed.
func (m *Manager) Stop() {
	for _, cmd := range m.cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			_ = cmd.Process.Kill()
		}
	}
	for _, cmd := range m.cmds {
		cmd := cmd
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(m.stopGrace):
			m.logger.WithField("pid", cmd.Process.Pid).Warn("Upstream did not exit in time, killing it")
			_ = cmd.Process.Kill()
			<-done
		}
	}
	m.cmds = nil

	if m.workDir != "" {
		if err := m.fs.RemoveAll(m.workDir); err != nil {
			m.logger.WithError(err).Warn("Could not remove the scratch directory")
		}
		m.workDir = ""
	}
}
