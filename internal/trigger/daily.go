package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"dubshorts/internal/config"
	"dubshorts/internal/logging"
	"dubshorts/internal/workflow"
)

// Target receives triggers.
type Target interface {
	Trigger(ctx context.Context, source string) workflow.TriggerResult
}

// Daily fires the target on a cron schedule.
type Daily struct {
	expr     string
	schedule cron.Schedule
	target   Target
	logger   *slog.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

// NewDaily parses expr (five-field cron) and binds it to target.
func NewDaily(expr string, target Target, logger *slog.Logger) (*Daily, error) {
	expr = strings.TrimSpace(expr)
	schedule, err := config.CronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return &Daily{
		expr:     expr,
		schedule: schedule,
		target:   target,
		logger:   logging.NewComponentLogger(logger, "trigger"),
		now:      time.Now,
		after:    time.After,
	}, nil
}

// Expr returns the cron expression.
func (d *Daily) Expr() string { return d.expr }

// Next reports the next firing time after now.
func (d *Daily) Next() time.Time {
	return d.schedule.Next(d.now())
}

// Run fires the target at every scheduled time until ctx is done.
func (d *Daily) Run(ctx context.Context) error {
	for {
		next := d.Next()
		d.logger.Info("next scheduled run",
			logging.String("cron", d.expr),
			logging.String("at", next.Format(time.RFC3339)),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-d.after(next.Sub(d.now())):
		}
		result := d.target.Trigger(ctx, workflow.SourceCron)
		if !result.Started {
			logging.WarnWithContext(d.logger, "scheduled run skipped", "schedule_skipped",
				logging.String("reason", result.Reason),
				logging.String(logging.FieldImpact, "this slot produces no video"),
				logging.String(logging.FieldErrorHint, "runs that outlast the schedule interval skip the next slot"),
			)
		}
	}
}
