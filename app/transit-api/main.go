package main

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/app/transit-api/transitapi"
	"github.com/OpenTransitTools/stopwatch/business/catalog"
	"github.com/OpenTransitTools/stopwatch/business/data/monitored"
	"github.com/OpenTransitTools/stopwatch/business/upstream/cta"
	"github.com/OpenTransitTools/stopwatch/business/upstream/gtfsrt"
	"github.com/OpenTransitTools/stopwatch/foundation/database"
	"github.com/OpenTransitTools/stopwatch/foundation/httpclient"
	"github.com/OpenTransitTools/stopwatch/foundation/tracing"
	"github.com/ardanlabs/conf"
	logger "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "TRANSIT_API : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Web struct {
			Port                   int `conf:"default:8000"`
			ReadTimeoutSeconds     int `conf:"default:15"`
			WriteTimeoutSeconds    int `conf:"default:15"`
			IdleTimeoutSeconds     int `conf:"default:60"`
			ShutdownTimeoutSeconds int `conf:"default:5"`
		}
		Catalog struct {
			URL            string `conf:"default:https://www.transitchicago.com/downloads/sch_data/CTA_STOP_XFERS.txt"`
			DataDir        string `conf:"default:data"`
			MaxAgeHours    int    `conf:"default:24"`
			RefreshMinutes int    `conf:"default:60"`
		}
		Arrivals struct {
			Source         string `conf:"default:cta,help:cta or gtfsrt"`
			CacheSeconds   int    `conf:"default:15"`
			TimeoutSeconds int    `conf:"default:10"`
		}
		CTA struct {
			TrainTrackerURL string `conf:"default:http://lapi.transitchicago.com/api/1.0/ttarrivals.aspx"`
			TrainAPIKey     string `conf:"noprint"`
			BusTrackerURL   string `conf:"default:http://www.ctabustracker.com/bustime/api/v2/getpredictions"`
			BusAPIKey       string `conf:"noprint"`
		}
		GTFSRT struct {
			TripUpdatesURL string
			TimeZone       string `conf:"default:America/Chicago"`
		}
		Storage struct {
			Type string `conf:"default:file,help:file or db"`
			File string `conf:"default:data/monitored_stops.json"`
		}
		DB struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Tracing struct {
			Endpoint    string
			Insecure    bool    `conf:"default:false"`
			SampleRatio float64 `conf:"default:1"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Serve nearby stops, arrival predictions and monitored stops"
	const prefix = "TRANSIT_API"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Tracing

	shutdownTracing, err := tracing.Init(context.Background(), log, tracing.Config{
		ServiceName:    "transit-api",
		ServiceVersion: build,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer shutdownTracing()

	client := httpclient.New(time.Duration(cfg.Arrivals.TimeoutSeconds) * time.Second)

	// =========================================================================
	// Load Stop Catalog

	loader := catalog.NewLoader(log, client, catalog.LoaderConfig{
		URL:     cfg.Catalog.URL,
		DataDir: cfg.Catalog.DataDir,
		MaxAge:  time.Duration(cfg.Catalog.MaxAgeHours) * time.Hour,
	})
	if _, err = loader.Refresh(context.Background()); err != nil {
		// the refresh loop retries, searches answer 503 until then
		log.Printf("main: unable to load stop catalog: %v", err)
	}

	// =========================================================================
	// Arrival Source

	var arrivals transitapi.ArrivalSource
	switch cfg.Arrivals.Source {
	case "cta":
		arrivals = cta.NewRouter(
			cta.NewTrainTracker(client, cfg.CTA.TrainTrackerURL, cfg.CTA.TrainAPIKey),
			cta.NewBusTracker(client, cfg.CTA.BusTrackerURL, cfg.CTA.BusAPIKey))
	case "gtfsrt":
		if cfg.GTFSRT.TripUpdatesURL == "" {
			return fmt.Errorf("gtfsrt arrival source requires a trip updates url")
		}
		location, err := time.LoadLocation(cfg.GTFSRT.TimeZone)
		if err != nil {
			return fmt.Errorf("loading time zone %s: %w", cfg.GTFSRT.TimeZone, err)
		}
		arrivals = gtfsrt.NewSource(client, cfg.GTFSRT.TripUpdatesURL, location, func() gtfsrt.StopNamer {
			if current := loader.Current(); current != nil {
				return current
			}
			return nil
		})
	default:
		return fmt.Errorf("unknown arrival source %q", cfg.Arrivals.Source)
	}

	// =========================================================================
	// Monitored Stop Storage

	var storage transitapi.MonitoredStopStorage
	switch cfg.Storage.Type {
	case "file":
		storage = monitored.NewFileStorage(log, filepath.Clean(cfg.Storage.File))
	case "db":
		log.Println("main: Initializing database support")
		db, err := database.Open(database.Config{
			User:       cfg.DB.User,
			Password:   cfg.DB.Password,
			Host:       cfg.DB.Host,
			Name:       cfg.DB.Name,
			DisableTLS: cfg.DB.DisableTLS,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Printf("main: Database Stopping : %s", cfg.DB.Host)
			if err := db.Close(); err != nil {
				log.Printf("main: error closing database: %v", err)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = database.StatusCheck(ctx, db); err != nil {
			return fmt.Errorf("checking db status: %w", err)
		}
		dbStorage := monitored.NewDBStorage(log, db)
		if err = dbStorage.CreateSchema(ctx); err != nil {
			return fmt.Errorf("creating monitored_stop table: %w", err)
		}
		storage = dbStorage
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	transitapi.StartServices(log, transitapi.ServiceConfig{
		HttpPort:               cfg.Web.Port,
		ReadTimeout:            time.Duration(cfg.Web.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:           time.Duration(cfg.Web.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:            time.Duration(cfg.Web.IdleTimeoutSeconds) * time.Second,
		ShutdownTimeout:        time.Duration(cfg.Web.ShutdownTimeoutSeconds) * time.Second,
		CatalogRefreshInterval: time.Duration(cfg.Catalog.RefreshMinutes) * time.Minute,
		ArrivalCacheTTL:        time.Duration(cfg.Arrivals.CacheSeconds) * time.Second,
	}, loader, arrivals, storage, shutdown)
	return nil
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
