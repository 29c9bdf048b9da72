package main

import (
	"log"
	"net/http"

	"aalr/adapters/bspline"
	"aalr/adapters/dataset"
	"aalr/adapters/postgres"
	"aalr/api"
	"aalr/app"
	"aalr/internal"
	"aalr/internal/config"
	"aalr/internal/ensemble"
	"aalr/internal/errors"
	"aalr/internal/refine"
	"aalr/internal/testkit"
	"aalr/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to the PostgreSQL run ledger
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The package-level logger was built before godotenv ran; rebuild it
	// from the validated config.
	level, _ := internal.ParseLogLevel(appConfig.Logging.Level)
	internal.DefaultLogger = internal.NewLogger(level)

	// Run ledger: Postgres when configured, in-memory otherwise
	var ledger ports.RunLedger
	if appConfig.Database.Enabled() {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		ledger = postgres.NewRunRepository(db)
		log.Println("Run ledger backed by Postgres")
	} else {
		ledger = testkit.NewInMemoryRunLedger()
		log.Println("No DATABASE_URL configured, keeping runs in memory")
	}

	refineDefaults, err := app.RefineOptionsFromConfig(appConfig.Fit)
	if err != nil {
		log.Fatalf("Invalid fit configuration: %v", err)
	}
	ensembleDefaults := app.EnsembleOptionsFromConfig(appConfig.Ensemble)

	refiner := refine.New(bspline.New())
	fits := app.NewFitService(dataset.NewReader(), refiner, ensemble.New(refiner), ledger)
	server := api.NewServer(fits, refineDefaults, ensembleDefaults)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
	}

	log.Printf("🚀 Starting aalr server on port %s", appConfig.Server.Port)
	log.Fatal(httpServer.ListenAndServe())
}
