package main

import (
	"context"
	"log"

	"overlap/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (store, bus, module, HTTP server).
// 3) Serve until the listener fails.
func main() {
	log.Println("overlap api starting")
	ctx := context.Background()
	app, err := bootstrap.BuildAPI(ctx)
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("overlap api stopped with error: %v", err)
	}
}
