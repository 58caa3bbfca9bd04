package main

import (
	"log"

	"venture-backend/internal/bootstrap"
	"venture-backend/internal/shared/config"
	"venture-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
