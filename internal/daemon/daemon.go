package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"dubshorts/internal/config"
	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/trigger"
	"dubshorts/internal/workflow"
)

// RunLister reads run history for the API.
type RunLister interface {
	List(ctx context.Context, filter history.Filter) ([]history.Run, error)
}

// Daemon coordinates the trigger surfaces and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	runs     RunLister

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	running  atomic.Bool
	cancel   context.CancelFunc
	group    *errgroup.Group
	groupCtx context.Context
	api      *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.Status
	LockFilePath string
	HistoryPath  string
}

// New constructs a daemon. runs may be nil when history is unavailable.
func New(cfg *config.Config, wf *workflow.Manager, runs RunLister, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || wf == nil {
		return nil, errors.New("daemon requires config and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: wf,
		runs:     runs,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, launches the workflow manager, and starts
// the configured trigger surfaces.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dubshorts instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	var daily *trigger.Daily
	if expr := strings.TrimSpace(d.cfg.Schedule.DailyCron); expr != "" {
		daily, err = trigger.NewDaily(expr, d.workflow, d.logger)
		if err != nil {
			d.abortStart(cancel)
			return err
		}
		d.workflow.SetScheduleSource(daily.Next)
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.abortStart(cancel)
		return err
	}
	if err := api.listen(); err != nil {
		d.abortStart(cancel)
		return err
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	if daily != nil {
		group.Go(func() error { return daily.Run(groupCtx) })
	}
	if d.cfg.Schedule.WatchBacklog {
		watcher := trigger.NewBacklogWatcher(d.cfg.Paths.BacklogFile, d.workflow, d.logger)
		group.Go(func() error { return watcher.Run(groupCtx) })
	}
	if api != nil {
		group.Go(func() error { return api.serve(groupCtx) })
	}

	d.cancel = cancel
	d.group = group
	d.groupCtx = groupCtx
	d.api = api
	d.running.Store(true)
	d.logger.Info("dubshorts daemon started",
		logging.String("lock", d.lockPath),
		logging.String("daily_cron", d.cfg.Schedule.DailyCron),
		logging.Bool("watch_backlog", d.cfg.Schedule.WatchBacklog),
	)
	return nil
}

func (d *Daemon) abortStart(cancel context.CancelFunc) {
	cancel()
	d.workflow.Stop()
	_ = d.lock.Unlock()
}

// Done is closed when a trigger surface fails or the start context ends.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.groupCtx == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return d.groupCtx.Done()
}

// Stop shuts down the trigger surfaces, cancels any in-flight run, and
// releases the instance lock. It returns the first trigger surface error.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return nil
	}

	d.cancel()
	err := d.group.Wait()
	d.workflow.Stop()
	if unlockErr := d.lock.Unlock(); unlockErr != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(unlockErr))
	}
	d.cancel = nil
	d.group = nil
	d.groupCtx = nil
	d.api = nil
	d.running.Store(false)
	d.logger.Info("dubshorts daemon stopped")
	return err
}

// Run starts the daemon and blocks until ctx is done or a trigger surface fails.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-d.Done()
	return d.Stop()
}

// APIAddress reports the bound API address, or "" when the API is disabled.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.api == nil {
		return ""
	}
	return d.api.address()
}

// TriggerRun starts a run on behalf of source.
func (d *Daemon) TriggerRun(ctx context.Context, source string) workflow.TriggerResult {
	return d.workflow.Trigger(ctx, source)
}

// CancelRun aborts the in-flight run, if any.
func (d *Daemon) CancelRun() bool {
	return d.workflow.Cancel()
}

// ListRuns returns run history, newest first.
func (d *Daemon) ListRuns(ctx context.Context, filter history.Filter) ([]history.Run, error) {
	if d.runs == nil {
		return nil, errors.New("run history unavailable")
	}
	return d.runs.List(ctx, filter)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(),
		LockFilePath: d.lockPath,
		HistoryPath:  d.cfg.HistoryDBPath(),
	}
}
