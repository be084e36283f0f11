package main

import (
	"context"
	"log"

	"ai-recorder-be/internal/bootstrap"
	"ai-recorder-be/internal/config"
	"ai-recorder-be/internal/server"
	"ai-recorder-be/internal/tracer"
	"ai-recorder-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional session archive)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	} else {
		log.Println("No DB_CONNECTION_STRING set, sessions live in memory only")
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services + Server
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Println("Background: Starting Consumer Service...")
		return container.ConsumerService.Consume(ctx)
	})

	srv := server.New(cfg, container)
	g.Go(srv.Run)

	log.Fatal(g.Wait())
}
