package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/playmatatu/balldrop/internal/api/handlers"
	"github.com/playmatatu/balldrop/internal/config"
	"github.com/playmatatu/balldrop/internal/database"
	"github.com/playmatatu/balldrop/internal/players"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	name := os.Getenv("PLAYER_NAME")
	if name == "" {
		name = "demo"
		log.Printf("Using default player name: %s", name)
	}
	pin := os.Getenv("PLAYER_PIN")
	if pin == "" {
		pin = "1234"
		log.Printf("WARNING: Using default PIN. Set PLAYER_PIN env var for anything shared!")
	}

	ctx := context.Background()
	svc := players.NewService(db, cfg)
	p, err := svc.Create(ctx, name, pin)
	if errors.Is(err, players.ErrNameTaken) {
		log.Printf("Player %q already exists; logging in instead", name)
		p, err = svc.Login(ctx, name, pin)
	}
	if err != nil {
		log.Fatalf("Failed to seed player: %v", err)
	}

	token, expires, err := handlers.IssueToken(cfg, p.ID)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	log.Printf("✓ Player ready")
	log.Printf("  ID: %d", p.ID)
	log.Printf("  Name: %s", p.Name)
	log.Printf("  Token (expires %s):", expires.Format("2006-01-02 15:04"))
	log.Printf("  %s", token)
}
