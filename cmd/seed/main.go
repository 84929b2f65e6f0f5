// Command seed loads the qaafia dictionary, girah verses, ghazals and demo users.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"harfzaar/internal/bootstrap"
	"harfzaar/internal/config"
	"harfzaar/internal/database"
	"harfzaar/internal/repository"
	"harfzaar/internal/seed"
)

func main() {
	file := flag.String("file", "", "Dictionary YAML to load (default: bundled sample)")
	numUsers := flag.Int("users", 0, "Number of demo users to create")
	fakeSeed := flag.Int64("fake-seed", 0, "Seed for demo user generation (0 = random)")
	flag.Parse()

	log.Println("Harfzaar Seeder")
	log.Println("===============")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = db.Close(context.Background()) }()

	dict, err := seed.LoadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read dictionary: %v", err)
	}

	s := seed.NewSeeder(
		repository.NewWordRepository(db.Collection(database.WordsCollection)),
		repository.NewGirahLineRepository(db.Collection(database.GirahLinesCollection)),
		repository.NewGhazalRepository(db.Collection(database.GhazalsCollection)),
		repository.NewUserRepository(db.Collection(database.UsersCollection)),
		*fakeSeed,
	)

	res, err := s.Load(ctx, dict)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Words: %d, girah lines: %d, ghazals: %d", res.Words, res.GirahLines, res.Ghazals)

	if *numUsers > 0 {
		users, err := s.FakeUsers(ctx, *numUsers)
		if err != nil {
			log.Fatalf("Demo user seeding failed after %d users: %v", len(users), err)
		}
		log.Printf("Created %d demo users with password %s", len(users), seed.DemoPassword)
	}

	log.Println("Done.")
}
