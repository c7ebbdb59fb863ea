// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Command migrate manages the Postgres schema of the document store.
//
//	migrate [up]   apply the schema
//	migrate down   drop the schema
//	migrate reset  delete the stored document so the next start reseeds it
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/intellitrader/portal/internal/config"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/intellitrader/portal/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName + "-migrate",
	})

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, cmd); err != nil {
		slog.Error("migration failed", logger.Operation(cmd), logger.Error(err))
		os.Exit(1)
	}
	slog.Info("migration successful", logger.Operation(cmd))
}

func run(ctx context.Context, cfg *config.Config, cmd string) error {
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "up":
		return db.Migrate(ctx, postgres.InitialSchema)
	case "down":
		return db.Migrate(ctx, postgres.DropSchema)
	case "reset":
		return postgres.NewDocumentRepository(db, cfg.Storage.Document).Delete(ctx)
	default:
		return fmt.Errorf("unknown command %q (want up, down or reset)", cmd)
	}
}
