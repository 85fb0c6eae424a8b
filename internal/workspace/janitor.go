package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "shiftcal/internal/log"
)

const (
	dirPrefix = "ws-"

	DefaultTTL      = time.Hour
	DefaultSchedule = "@every 10m"
)

// Janitor periodically removes workspaces older than its TTL.
type Janitor struct {
	root string
	ttl  time.Duration
	now  func() time.Time
	cron *cron.Cron
}

// NewJanitor returns a janitor sweeping root on the cron schedule spec
// (standard five-field syntax or descriptors such as "@every 10m").
func NewJanitor(root string, ttl time.Duration, spec string) (*Janitor, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if spec == "" {
		spec = DefaultSchedule
	}
	j := &Janitor{
		root: root,
		ttl:  ttl,
		now:  time.Now,
		cron: cron.New(),
	}
	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return nil, fmt.Errorf("janitor schedule %q: %w", spec, err)
	}
	return j, nil
}

// Start begins the sweep schedule in its own goroutine.
func (j *Janitor) Start() {
	appLog.Info("workspace janitor started", "root", j.root, "ttl", j.ttl.String())
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, or ctx.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (j *Janitor) run() {
	n, err := j.Sweep()
	if err != nil {
		appLog.Error("workspace sweep failed", err, "root", j.root)
		return
	}
	if n > 0 {
		appLog.Info("workspace sweep", "removed", n)
	}
}

// Sweep removes every workspace under root last modified before now-ttl
// and returns how many were removed. Entries not created by New are left
// alone.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := j.now().Add(-j.ttl)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(j.root, e.Name())); err != nil {
			appLog.Warn("workspace remove failed", "dir", e.Name(), "error", err.Error())
			continue
		}
		removed++
	}
	return removed, nil
}
