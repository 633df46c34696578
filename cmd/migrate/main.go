package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ai-interior-design-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

const usage = `Usage: migrate [command]

Commands:
  up       apply all pending migrations (default)
  down     roll back the latest migration
  status   print applied and pending migrations
  version  print the current schema version
  reset    roll back every migration`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if err := godotenv.Load(); err != nil {
		color.Yellow("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	color.Cyan("Running migrate %s", command)
	if err := database.Migrate(context.Background(), dsn, command); err != nil {
		color.Red("Migration failed: %v", err)
		os.Exit(1)
	}
	color.Green("Migration %s completed", command)
}
