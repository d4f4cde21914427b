package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"clickup-bridge/internal/clickup"
	"clickup-bridge/internal/config"
	"clickup-bridge/internal/database"
	"clickup-bridge/internal/recovery"
	"clickup-bridge/internal/webhooks"
	"clickup-bridge/pkg/logger"
)

const usage = `
clickup-bridge Admin CLI - Administrative operations

USAGE:
    admin <command> [options]

COMMANDS:
    webhook     Webhook management operations
    migrate     Database schema operations

WEBHOOK COMMANDS:
    admin webhook list [--status=<active|failing|suspended>]
    admin webhook sync
    admin webhook recover --id=<webhook-id>
    admin webhook recover --all

MIGRATE COMMANDS:
    admin migrate up

EXAMPLES:
    admin webhook list --status=failing
    admin webhook recover --all
    admin webhook sync
    admin migrate up

EXIT CODES:
    0   success
    1   operation failed
    2   invalid usage
`

type adminCLI struct {
	cfg      *config.Config
	db       *database.Database
	registry *webhooks.Registry
	client   *clickup.Client
	logger   logger.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithConfig("admin", &logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	cli := &adminCLI{
		cfg:      cfg,
		db:       db,
		registry: webhooks.NewRegistry(db.DB),
		client:   clickup.NewClient(cfg.ClickUp, logger.New("clickup")),
		logger:   log,
	}

	ctx := context.Background()

	switch command {
	case "webhook":
		os.Exit(cli.runWebhook(ctx, os.Args[2:]))
	case "migrate":
		os.Exit(cli.runMigrate(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fmt.Print(usage)
		os.Exit(2)
	}
}

func (c *adminCLI) runWebhook(ctx context.Context, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Missing webhook subcommand")
		return 2
	}

	switch args[0] {
	case "list":
		return c.webhookList(ctx, args[1:])
	case "sync":
		return c.webhookSync(ctx)
	case "recover":
		return c.webhookRecover(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown webhook subcommand: %s\n", args[0])
		return 2
	}
}

func (c *adminCLI) webhookList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("webhook list", flag.ContinueOnError)
	status := fs.String("status", "", "Filter by health status")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	registrations, err := c.registry.List(ctx, webhooks.HealthStatus(*status))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list webhooks: %v\n", err)
		return 1
	}

	if len(registrations) == 0 {
		fmt.Println("No webhooks registered.")
		return 0
	}

	fmt.Printf("%-6s %-38s %-10s %-8s %-10s %-10s %s\n",
		"ID", "REMOTE ID", "STATUS", "ACTIVE", "DELIVERED", "FAILED", "FAILURE RATE")
	for i := range registrations {
		w := &registrations[i]
		remoteID := "-"
		if w.RemoteID != nil {
			remoteID = *w.RemoteID
		}
		fmt.Printf("%-6d %-38s %-10s %-8t %-10d %-10d %.1f%%\n",
			w.ID, remoteID, w.HealthStatus, w.IsActive,
			w.TotalDeliveries, w.FailedDeliveries, w.FailureRate())
	}
	return 0
}

func (c *adminCLI) webhookSync(ctx context.Context) int {
	if c.cfg.ClickUp.WorkspaceID == "" {
		fmt.Fprintln(os.Stderr, "CLICKUP_WORKSPACE_ID is not configured")
		return 2
	}

	manager := webhooks.NewManager(c.client, c.registry,
		c.cfg.ClickUp.AppURL, c.cfg.Webhook.Path, c.logger)

	count, err := manager.SyncFromRemote(ctx, c.cfg.ClickUp.WorkspaceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		return 1
	}

	fmt.Printf("Synced %d webhooks from workspace %s.\n", count, c.cfg.ClickUp.WorkspaceID)
	return 0
}

func (c *adminCLI) webhookRecover(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("webhook recover", flag.ContinueOnError)
	id := fs.String("id", "", "Remote webhook id to recover")
	all := fs.Bool("all", false, "Recover all webhooks needing recovery")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !*all && *id == "" {
		fmt.Fprintln(os.Stderr, "Either --id or --all is required")
		return 2
	}

	operator := recovery.NewOperator(c.client, c.registry, c.logger)

	if *id != "" {
		if err := operator.RecoverOne(ctx, *id); err != nil {
			fmt.Fprintf(os.Stderr, "Recovery failed for %s: %v\n", *id, err)
			return 1
		}
		fmt.Printf("Webhook %s recovered.\n", *id)
		return 0
	}

	result, err := operator.RecoverAll(ctx)
	if result != nil && result.Attempted == 0 {
		fmt.Println("No webhooks need recovery.")
		return 0
	}
	if result != nil {
		fmt.Printf("Recovered %d of %d webhooks.\n", result.Succeeded, result.Attempted)
		for webhookID, reason := range result.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", webhookID, reason)
		}
	}
	if err != nil {
		return 1
	}
	return 0
}

func (c *adminCLI) runMigrate(args []string) int {
	if len(args) < 1 || args[0] != "up" {
		fmt.Fprintln(os.Stderr, "Usage: admin migrate up")
		return 2
	}

	if err := c.db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}
	fmt.Println("Migrations completed.")
	return 0
}
