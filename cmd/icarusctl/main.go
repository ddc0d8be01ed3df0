// Command icarusctl runs operator tasks against an Icarus deployment.
//
//	icarusctl accounts deactivate --email someone@example.com
//	icarusctl accounts activate --email someone@example.com
//	icarusctl waitlist list [--pending] [--json]
//	icarusctl jobs trigger --task sessions:purge
//	icarusctl jobs trigger --task waitlist:mark-notified --ids 1,2,3
//	icarusctl jobs stats
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/icarus-art/icarus/cmd/icarusctl/cli"
	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/app"
	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/platform/cache"
	"github.com/icarus-art/icarus/internal/platform/db"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/waitlist"
	"github.com/icarus-art/icarus/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: icarusctl <accounts|waitlist|jobs> <command> [flags]")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 1
	}
	group, command, rest := args[0], args[1], args[2:]

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg)

	switch group {
	case "accounts":
		return runAccounts(ctx, cfg, logger, command, rest, stdout, stderr)
	case "waitlist":
		return runWaitlist(ctx, cfg, command, rest, stdout, stderr)
	case "jobs":
		return runJobs(ctx, cfg, command, rest, stdout, stderr)
	default:
		usage(stderr)
		return 1
	}
}

func runAccounts(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string, stdout, stderr io.Writer) int {
	var active bool
	switch command {
	case "activate":
		active = true
	case "deactivate":
		active = false
	default:
		usage(stderr)
		return 1
	}
	fs := flag.NewFlagSet("accounts "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "connect database: %v\n", err)
		return 1
	}
	defer pool.Close()
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "connect redis: %v\n", err)
		return 1
	}
	defer redisClient.Close()

	sessions := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	authService := auth.NewService(auth.NewRepository(pool), sessions, logger)
	service := accounts.NewService(accounts.NewRepository(pool), auth.NewHasher(cfg.BcryptCost), authService, cfg.AccountsConfig())

	accountsCLI, err := cli.NewAccountsCLI(service)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return accountsCLI.SetActiveCommand(ctx, cli.SetActiveOptions{Email: *email, Active: active, Stdout: stdout, Stderr: stderr})
}

func runWaitlist(ctx context.Context, cfg *app.Config, command string, args []string, stdout, stderr io.Writer) int {
	if command != "list" {
		usage(stderr)
		return 1
	}
	fs := flag.NewFlagSet("waitlist list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pending := fs.Bool("pending", false, "only entries not yet notified")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "connect database: %v\n", err)
		return 1
	}
	defer pool.Close()

	return cli.NewWaitlistCLI(waitlist.NewService(waitlist.NewRepository(pool))).
		ListCommand(ctx, cli.ListOptions{PendingOnly: *pending, JSONOutput: *asJSON, Stdout: stdout, Stderr: stderr})
}

func runJobs(ctx context.Context, cfg *app.Config, command string, args []string, stdout, stderr io.Writer) int {
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts)
	defer client.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()
	jobsCLI := cli.NewJobsCLI(client, inspector)

	switch command {
	case "trigger":
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		fs.SetOutput(stderr)
		task := fs.String("task", "", "task type: "+jobs.TaskSessionsPurge+" or "+jobs.TaskWaitlistMarkNotified)
		ids := fs.String("ids", "", "comma separated waitlist ids")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		return jobsCLI.TriggerCommand(ctx, cli.TriggerOptions{Task: *task, IDs: *ids, Stdout: stdout, Stderr: stderr})
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		usage(stderr)
		return 1
	}
}
