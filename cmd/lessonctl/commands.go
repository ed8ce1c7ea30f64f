package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/app"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/database"
	"github.com/noah-isme/lesson-planner-api/pkg/logger"
)

const dateFlagLayout = "2006-01-02"

var (
	// fs receives exported agendas. Tests swap in a memory filesystem.
	fs afero.Fs = afero.NewOsFs()

	stdout io.Writer = os.Stdout
)

func newApp() *cli.App {
	return &cli.App{
		Name:      "lessonctl",
		HelpName:  "lessonctl",
		Usage:     "operate the lesson planner database",
		UsageText: "lessonctl <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "generate",
				Usage:  "create missing lessons for every schedule in a date range",
				Action: generate,
				Flags: []cli.Flag{
					cli.StringFlag{Name: "from", Usage: "first date, YYYY-MM-DD (default: today)"},
					cli.StringFlag{Name: "to", Usage: "last date, YYYY-MM-DD (default: from + lookahead)"},
				},
			},
			{
				Name:   "sync",
				Usage:  "reconcile a schedule's future lessons with its template",
				Action: syncSchedule,
				Flags: []cli.Flag{
					cli.StringFlag{Name: "schedule, s", Usage: "schedule id"},
				},
			},
			{
				Name:   "export",
				Usage:  "write a day agenda as csv or pdf",
				Action: exportAgenda,
				Flags: []cli.Flag{
					cli.StringFlag{Name: "date, d", Usage: "day to export, YYYY-MM-DD"},
					cli.StringFlag{Name: "format, f", Value: "csv", Usage: "csv or pdf"},
					cli.StringFlag{Name: "out, o", Usage: "output file (default: agenda-<date>.<format>)"},
				},
			},
			{
				Name:   "token",
				Usage:  "mint an API access token",
				Action: mintToken,
				Flags: []cli.Flag{
					cli.StringFlag{Name: "subject", Value: "owner", Usage: "token subject"},
					cli.StringFlag{Name: "name", Usage: "display name"},
				},
			},
		},
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func withApp(fn func(ctx context.Context, a *app.App, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, logr, err := loadConfig()
		if err != nil {
			return err
		}
		defer logr.Sync() //nolint:errcheck
		ctx := context.Background()
		a, err := app.New(ctx, cfg, logr)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, c)
	}
}

func migrate(c *cli.Context) error {
	cfg, logr, err := loadConfig()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(context.Background(), db); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema up to date (%s)\n", db.DriverName())
	return nil
}

var generate = withApp(func(ctx context.Context, a *app.App, c *cli.Context) error {
	from, to, err := generationWindow(c.String("from"), c.String("to"), a.Config.Lessons.Location(), a.Engine.Lookahead(), time.Now())
	if err != nil {
		return err
	}
	result, err := a.Engine.GenerateAll(ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "generated %d lessons across %d schedules (%d already present)\n", result.Created, result.Definitions, result.Skipped)
	return nil
})

var syncSchedule = withApp(func(ctx context.Context, a *app.App, c *cli.Context) error {
	id := c.String("schedule")
	if id == "" {
		return cli.NewExitError("--schedule is required", 2)
	}
	result, err := a.Schedules.SyncByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "moved %d, removed %d, created %d lessons\n", result.Updated, result.Deleted, result.Created.Created)
	return nil
})

var exportAgenda = withApp(func(ctx context.Context, a *app.App, c *cli.Context) error {
	date := c.String("date")
	if date == "" {
		date = time.Now().In(a.Config.Lessons.Location()).Format(dateFlagLayout)
	}
	file, err := a.Export.DayAgenda(ctx, date, c.String("format"))
	if err != nil {
		return err
	}
	path, err := writeExport(fs, c.String("out"), file)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", path, len(file.Data))
	return nil
})

func mintToken(c *cli.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		Expiration: cfg.Auth.Expiration,
	})
	issued, err := tokens.Issue(c.String("subject"), c.String("name"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\nexpires %s\n", issued.Token, issued.ExpiresAt.Format(time.RFC3339))
	return nil
}

// generationWindow resolves --from/--to into [from, to) in the lesson timezone.
func generationWindow(fromFlag, toFlag string, loc *time.Location, lookahead time.Duration, now time.Time) (time.Time, time.Time, error) {
	from := now.In(loc)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	if fromFlag != "" {
		parsed, err := time.ParseInLocation(dateFlagLayout, fromFlag, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: %w", fromFlag, err)
		}
		from = parsed
	}
	to := from.Add(lookahead)
	if toFlag != "" {
		parsed, err := time.ParseInLocation(dateFlagLayout, toFlag, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: %w", toFlag, err)
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return from, to, nil
}

func writeExport(target afero.Fs, out string, file *service.ExportedFile) (string, error) {
	if out == "" {
		out = file.Filename
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := target.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(target, out, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
