// Package main is the standalone database migration tool
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"clickup-bridge/internal/config"
	"clickup-bridge/internal/database"
)

const usage = `
clickup-bridge Database Migration Tool

USAGE:
    migrate <command>

COMMANDS:
    up           Run schema migrations
    health       Check database health

EXAMPLES:
    migrate up
    migrate health
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Migrations run explicitly here, not during Initialize
	cfg.Database.AutoMigrate = false

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations completed.")
	case "health":
		health := db.Health(context.Background())
		out, _ := json.MarshalIndent(health, "", "  ")
		fmt.Println(string(out))
		if health["status"] != "healthy" {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}
