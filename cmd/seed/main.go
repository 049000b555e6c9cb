// Command seed fills the board database with demo users and content.
package main

import (
	"context"
	"flag"
	"log"

	"bbs/internal/config"
	"bbs/internal/database"
	"bbs/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 20, "Number of users to create")
	postsPerBoard := flag.Int("posts", 30, "Number of posts to create on each board")
	comments := flag.Int("comments", 5, "Maximum comments per post")
	messages := flag.Int("messages", 3, "Messages sent by each user")
	days := flag.Int("days", 30, "Spread generated timestamps over this many past days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fakerSeed := flag.Int64("seed", 0, "Faker seed for repeatable data (0 = random)")
	flag.Parse()

	log.Println("🌱 Board Seeder")
	log.Println("===============")
	log.Printf("Target: %d users, %d posts per board, clean=%v\n", *numUsers, *postsPerBoard, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	boards, err := seed.LoadBoards(cfg.DefaultBoardsFile)
	if err != nil {
		log.Fatalf("❌ Loading boards failed: %v", err)
	}

	s := seed.NewSeeder(db, seed.SeedOptions{MaxDays: *days, Seed: *fakerSeed})
	err = s.Run(boards, seed.Options{
		NumUsers:        *numUsers,
		PostsPerBoard:   *postsPerBoard,
		CommentsPerPost: *comments,
		MessagesPerUser: *messages,
		ShouldClean:     *shouldClean,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
