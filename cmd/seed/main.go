// Command seed fills the blog database with fake authors and posts.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	numPosts := flag.Int("posts", 40, "Number of posts to create")
	shouldClean := flag.Bool("clean", false, "Delete existing posts, covers and users before seeding")
	maxDays := flag.Int("days", 90, "Spread post creation times over this many days")
	flag.Parse()

	log.Printf("Seeding %d users, %d posts (clean=%v)", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	// Seeded posts bypass the repository, so drop any cached listing.
	cache.InvalidatePostsList(context.Background())

	res, err := seed.NewSeeder(rt.DB, rt.Covers, seed.Options{
		NumUsers: *numUsers,
		NumPosts: *numPosts,
		Clean:    *shouldClean,
		MaxDays:  *maxDays,
	}).Run()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users and %d posts", len(res.Users), len(res.Posts))
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
