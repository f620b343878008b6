// migrate applies or rolls back the telematics schema (sessions and data streams).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/config"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/db/migrate"
)

// runner applies migrations; replaced in tests.
var runner = migrate.Run

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success or when the schema is already current,
// 2 for usage errors, 1 otherwise.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	direction := fs.StringP("direction", "d", "up", "up applies all migrations, down rolls all of them back")
	dsn := fs.String("database-url", "", "Postgres DSN; defaults to DATABASE_URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(stderr, "migrate: unknown direction %q (want up or down)\n", *direction)
		return 2
	}

	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(stderr, "migrate:", err)
			return 1
		}
		*dsn = cfg.DatabaseURL
	}
	if *dsn == "" {
		fmt.Fprintln(stderr, "migrate: no database; pass --database-url or set DATABASE_URL")
		return 1
	}

	err := runner(*dsn, *direction)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Fprintln(stdout, "migrate: schema already current")
	case err != nil:
		fmt.Fprintln(stderr, "migrate:", err)
		return 1
	default:
		fmt.Fprintf(stdout, "migrate: %s complete\n", *direction)
	}
	return 0
}
