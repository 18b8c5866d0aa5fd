package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/app"
	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/render"
	"github.com/Freeeeeet/coach_booking/internal/service"
	"go.uber.org/zap"
)

type ServeCmd struct {
	SkipMigrate bool `help:"Do not apply migrations on start."`
}

func (c *ServeCmd) Run(rc *runContext) error {
	rc.logger.Info("Starting coachd",
		zap.String("environment", rc.cfg.Environment),
		zap.String("storage", rc.cfg.Storage),
	)

	return withApp(rc, func(a *app.App) error {
		if !c.SkipMigrate {
			if err := a.Migrate(rc.ctx); err != nil {
				return err
			}
		}
		return a.Serve(rc.ctx)
	})
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(rc *runContext) error {
	return withApp(rc, func(a *app.App) error {
		return a.Migrate(rc.ctx)
	})
}

type SeedAvailabilityCmd struct {
	Coach int64 `help:"Coach id." required:""`
}

func (c *SeedAvailabilityCmd) Run(rc *runContext) error {
	return withApp(rc, func(a *app.App) error {
		rules, err := a.Availability.SeedDefaults(rc.ctx, c.Coach)
		if err != nil {
			return err
		}
		for _, r := range rules {
			fmt.Printf("%-9s %s-%s (rule %d)\n", time.Weekday(r.DayOfWeek), r.StartTime, r.EndTime, r.ID)
		}
		return nil
	})
}

type RenderWeekCmd struct {
	Coach     int64  `help:"Coach id." required:""`
	WeekStart string `help:"First day of the week (YYYY-MM-DD). Defaults to the current Sunday."`
	Out       string `help:"Output file." default:"week.png" type:"path"`
}

func (c *RenderWeekCmd) Run(rc *runContext) error {
	now := time.Now()
	weekStart := service.CurrentWeekStart(now)
	if c.WeekStart != "" {
		d, err := interval.ParseDate(c.WeekStart)
		if err != nil {
			return err
		}
		weekStart = d
	}

	return withApp(rc, func(a *app.App) error {
		week, err := a.Capacity.WeekSchedule(rc.ctx, c.Coach, weekStart)
		if err != nil {
			return err
		}
		img, err := render.WeekPNG(week, now)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.Out, img, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", c.Out, err)
		}

		rc.logger.Info("Week rendered",
			zap.Int64("coach_id", c.Coach),
			zap.String("week_start", weekStart.Format(time.DateOnly)),
			zap.String("file", c.Out),
		)
		return nil
	})
}
