package resource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/worldline-go/hardloop"

	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// cronRunner is satisfied by hardloop's unexported cron job type (returned
// by hardloop.NewCron), mirroring the teacher's
// internal/service/workflow/scheduler.go cronRunner interface.
type cronRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// Sweeper periodically walks the tree calling Buffer.Evict on every
// Observation buffer (SPEC_FULL.md "Periodic buffer sweep"). Because the
// window cap is measured from the newest entry rather than the current
// time, a sweep removes entries only from buffers whose caps were lowered
// after their last push; the commit-time eviction in Buffer.Append remains
// the correctness boundary.
type Sweeper struct {
	tree *tree.Tree
	cron cronRunner
}

// NewSweeper creates a Sweeper that runs every interval (hardloop's
// "@every" cron spec, the same convention the teacher's scheduler builds
// cron specs with in internal/service/workflow/scheduler.go).
func NewSweeper(t *tree.Tree, interval string) (*Sweeper, error) {
	sw := &Sweeper{tree: t}
	job, err := hardloop.NewCron(hardloop.Cron{
		Name:  "observation-buffer-sweep",
		Specs: []string{"@every " + interval},
		Func:  sw.sweep,
	})
	if err != nil {
		return nil, fmt.Errorf("sweeper: create cron runner: %w", err)
	}
	sw.cron = job
	return sw, nil
}

// Start begins periodic sweeping; Stop via ctx cancellation or Sweeper.Stop.
func (sw *Sweeper) Start(ctx context.Context) error {
	return sw.cron.Start(ctx)
}

// Stop halts the sweeper.
func (sw *Sweeper) Stop() {
	if sw.cron != nil {
		sw.cron.Stop()
	}
}

func (sw *Sweeper) sweep(_ context.Context) error {
	sw.tree.Lock()
	defer sw.tree.Unlock()

	n := 0
	walk(sw.tree.Root(), func(e *tree.Entry) {
		if e.Role != tree.RoleObservation {
			return
		}
		st := Of(e)
		if st == nil || st.Buffer == nil {
			return
		}
		st.Buffer.Evict()
		n++
	})
	slog.Debug("observation buffer sweep complete", "observations_checked", n)
	return nil
}

func walk(e *tree.Entry, fn func(*tree.Entry)) {
	fn(e)
	for _, c := range e.Children() {
		walk(c, fn)
	}
}
