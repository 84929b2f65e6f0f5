// Command migrate manages the MongoDB indexes the repositories rely on.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"harfzaar/internal/config"
	"harfzaar/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status|rebuild> [collection]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(context.Background()) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := db.EnsureIndexes(ctx); err != nil {
			return err
		}
		log.Println("indexes ensured")
	case "status":
		reports, err := db.IndexStatus(ctx)
		if err != nil {
			return err
		}
		for _, r := range reports {
			log.Printf("%-14s present=%d missing=%d", r.Collection, len(r.Present), len(r.Missing))
			for _, name := range r.Missing {
				log.Printf("  missing: %s", name)
			}
		}
	case "rebuild":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate rebuild <collection>")
		}
		coll := flag.Arg(1)
		if err := db.DropIndexes(ctx, coll); err != nil {
			return fmt.Errorf("drop indexes: %w", err)
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			return err
		}
		log.Printf("rebuilt indexes on %s", coll)
	default:
		return usage()
	}
	return nil
}
