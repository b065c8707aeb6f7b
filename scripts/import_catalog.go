package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"roombook/internal/catalog"
	"roombook/internal/database"
	"roombook/internal/models"
	"roombook/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog .yaml or .xlsx")
		dbPath      = flag.String("db", "./data/roombook.db", "path to sqlite db")
		defaultRole = flag.String("default-role", models.RoleProfessor, "role for users without one")
	)
	flag.Parse()

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		return err
	}
	if len(cat.Rooms)+len(cat.TimeSlots)+len(cat.Users) == 0 {
		return fmt.Errorf("catalog %s is empty", *catalogPath)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := catalog.Apply(ctx, cat,
		service.NewCatalogService(db, &logger),
		service.NewUserService(db, *defaultRole, &logger),
		&logger,
	)
	if err != nil {
		return err
	}

	fmt.Printf("done: %s\n", res)
	return nil
}
