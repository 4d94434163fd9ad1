// Command main fills the Inkwell database with fake data.
package main

import (
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numGroups := flag.Int("groups", defaults.NumGroups, "Number of groups to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxComments := flag.Int("comments", defaults.MaxComments, "Maximum comments per post")
	maxFollows := flag.Int("follows", defaults.MaxFollows, "Maximum follows per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Store plain passwords instead of bcrypt hashes (dev only)")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *fast && cfg.IsProduction() {
		log.Fatal("-fast is not allowed in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumGroups = *numGroups
	opts.NumPosts = *numPosts
	opts.MaxComments = *maxComments
	opts.MaxFollows = *maxFollows
	opts.SkipBcrypt = *fast
	opts.DryRun = *dryRun

	s := seed.NewSeeder(db, opts)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}
	if _, err := s.Seed(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Seeded accounts use the password:", seed.DefaultPassword)
}
