package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/jayljohnson/nordhus.site/internal/config"
	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/monitor"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"nordhus.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Project struct {
		Start struct {
			Name string `arg:"" help:"Project name (letters, numbers, hyphens, underscores)"`
		} `cmd:"" help:"Start a new documentation project"`

		AddPhotos struct {
			Name    string `arg:"" help:"Project name"`
			Promote bool   `help:"With photo monitoring off, promote the project to photos-active for manually placed photos"`
		} `cmd:"" name:"add-photos" help:"Sync new photos from the remote album"`

		Finish struct {
			Name string `arg:"" help:"Project name"`
		} `cmd:"" help:"Generate the post and file the integration request"`

		Status struct {
			Name string `arg:"" help:"Project name"`
		} `cmd:"" help:"Show project state, photo count, and last sync time"`

		Abandon struct {
			Name string `arg:"" help:"Project name"`
		} `cmd:"" help:"Abandon the project"`
	} `cmd:"" help:"Manage documentation projects"`

	Monitor struct {
		Run struct {
		} `cmd:"" help:"Run one monitoring tick over all active projects"`

		Daemon struct {
		} `cmd:"" help:"Run monitoring ticks continuously"`
	} `cmd:"" help:"Photo monitoring"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(runCtx, ctx.Command(), cfg); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, command string, cfg *config.Config) error {
	mgr, err := buildManager(cfg)
	if err != nil {
		return err
	}

	switch command {
	case "project start <name>":
		rec, err := mgr.Start(ctx, CLI.Project.Start.Name)
		if err != nil {
			return err
		}
		fmt.Printf("Started project %s on branch %s\n", rec.Slug, rec.BranchName)
		return nil

	case "project add-photos <name>":
		res, err := mgr.AddPhotos(ctx, CLI.Project.AddPhotos.Name, CLI.Project.AddPhotos.Promote)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d new photos (%d total)\n", res.NewAssets, res.TotalAssets)
		return nil

	case "project finish <name>":
		rec, err := mgr.Finish(ctx, CLI.Project.Finish.Name)
		if err != nil {
			return err
		}
		fmt.Printf("Project %s complete; integration request #%s filed\n", rec.Slug, rec.RequestID)
		return nil

	case "project status <name>":
		rec, err := mgr.Status(CLI.Project.Status.Name)
		if err != nil {
			return err
		}
		lastSync := "never"
		if rec.LastSyncAt != nil {
			lastSync = rec.LastSyncAt.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("Project:    %s\nBranch:     %s\nState:      %s\nPhotos:     %d\nLast sync:  %s\n",
			rec.Slug, rec.BranchName, rec.State, len(rec.Assets), lastSync)
		return nil

	case "project abandon <name>":
		rec, err := mgr.Abandon(ctx, CLI.Project.Abandon.Name)
		if err != nil {
			return err
		}
		fmt.Printf("Project %s abandoned\n", rec.Slug)
		return nil

	case "monitor run":
		sched := monitor.NewScheduler(cfg.PhotoMonitoring, mgr)
		report, err := sched.RunTick(ctx)
		printTickReport(report)
		return err // systemic only; partial failure exits 0

	case "monitor daemon":
		sched := monitor.NewScheduler(cfg.PhotoMonitoring, mgr)
		d, err := monitor.NewDaemon(sched, cfg.MonitorInterval, cfg.MetricsAddr)
		if err != nil {
			return err
		}
		return d.Run(ctx)

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printTickReport(report monitor.TickReport) {
	fmt.Printf("Tick %s: %d project(s), %d ok, %d failed, %d new photos\n",
		report.TickID, report.Projects, report.OK, len(report.Failures), report.NewPhotos)
	for _, f := range report.Failures {
		fmt.Printf("  failed %s [%s]: %v\n", f.Slug, f.Category, f.Err)
	}
}

// exitCode maps the fault taxonomy onto exit codes: validation and state
// errors 2, project-fatal conditions 3, exhausted transient retries 4,
// authorization 5, anything else 1.
func exitCode(err error) int {
	switch faults.Classify(err) {
	case faults.CategoryValidation:
		return 2
	case faults.CategoryCorruption, faults.CategoryProject:
		if faults.IsDirtyWorkingTree(err) || faults.IsConcurrentSync(err) || faults.IsCorruption(err) {
			return 3
		}
		return 1
	case faults.CategoryTransient:
		return 4
	case faults.CategoryAuth:
		return 5
	default:
		return 1
	}
}
