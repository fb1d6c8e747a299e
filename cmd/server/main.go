package main

import (
	"log"
	"net/http"
	"os"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
	"github.com/dr-harper/spotify-quiz-sub000/internal/db"
	"github.com/dr-harper/spotify-quiz-sub000/internal/server"
	"github.com/dr-harper/spotify-quiz-sub000/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var gateway store.Gateway
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		gateway = store.NewGorm(conn)
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		gateway = store.NewMemory()
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(gateway, cfg)
	defer srv.Close()
	log.Printf("song quiz server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
