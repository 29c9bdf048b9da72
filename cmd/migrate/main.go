package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS fit_runs (
	run_id         TEXT PRIMARY KEY,
	fingerprint    TEXT NOT NULL,
	sample_count   INTEGER NOT NULL,
	degree         INTEGER NOT NULL,
	interior_knots JSONB NOT NULL,
	coefficients   JSONB NOT NULL,
	mask           JSONB NOT NULL,
	converged      BOOLEAN NOT NULL,
	iterations     INTEGER NOT NULL,
	final_distance INTEGER NOT NULL,
	dispersion     DOUBLE PRECISION NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS fit_runs_created_at_idx ON fit_runs (created_at DESC);
CREATE INDEX IF NOT EXISTS fit_runs_converged_idx ON fit_runs (converged);
`

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate <database_url> (or set DATABASE_URL)")
	}

	log.Println("Connecting to database...")
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Creating fit_runs table...")
	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("Failed to create fit_runs table: %v", err)
	}

	log.Println("✅ Migration complete, fit_runs is ready")
}
