package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/app/stop-monitor/stopmonitor"
	"github.com/OpenTransitTools/stopwatch/business/client"
	"github.com/OpenTransitTools/stopwatch/business/data/monitored"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/business/monitor"
	"github.com/OpenTransitTools/stopwatch/foundation/tracing"
	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
	logger "log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"
)

var build = "develop"

func main() {
	log := logger.New(os.Stderr, "STOP_MONITOR : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args   conf.Args
		Output string `conf:"default:text,help:text json or yaml"`
		API    struct {
			BaseURL        string `conf:"default:http://localhost:8000/api"`
			TimeoutSeconds int    `conf:"default:10"`
		}
		Search struct {
			Lat    string `conf:"default:41.8781"`
			Lon    string `conf:"default:-87.6298"`
			Radius string `conf:"default:0.5"`
		}
		Monitor struct {
			PollSeconds     int    `conf:"default:30"`
			ListWaitSeconds int    `conf:"default:15"`
			Storage         string `conf:"default:api,help:api or file"`
			StorageFile     string `conf:"default:monitored_stops.json"`
			TimeZone        string `conf:"default:America/Chicago"`
		}
		NATS struct {
			Enabled      bool   `conf:"default:false"`
			URL          string `conf:"default:nats://localhost:4222"`
			BoardSubject string `conf:"default:monitored-arrivals"`
		}
		Tracing struct {
			Endpoint    string
			Insecure    bool    `conf:"default:false"`
			SampleRatio float64 `conf:"default:1"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Monitor arrivals at chosen transit stops"
	const prefix = "STOP_MONITOR"
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

	format, err := stopmonitor.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}
	location, err := time.LoadLocation(cfg.Monitor.TimeZone)
	if err != nil {
		return fmt.Errorf("loading time zone %s: %w", cfg.Monitor.TimeZone, err)
	}

	shutdownTracing, err := tracing.Init(context.Background(), log, tracing.Config{
		ServiceName:    "stop-monitor",
		ServiceVersion: build,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer shutdownTracing()

	// =========================================================================
	// Build Monitor

	apiClient := client.New(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second)

	var persister monitor.Persister
	switch cfg.Monitor.Storage {
	case "api":
		persister = apiClient
	case "file":
		persister = monitored.NewFileStorage(log, cfg.Monitor.StorageFile)
	default:
		return fmt.Errorf("unknown storage %q, expected api or file", cfg.Monitor.Storage)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onUpdate, updates := stopmonitor.MakeUpdateFeed(log, 100)
	supervisor := monitor.NewSupervisor(ctx, log, apiClient,
		time.Duration(cfg.Monitor.PollSeconds)*time.Second, onUpdate)
	stopMonitor := monitor.NewMonitor(log, apiClient, monitor.NewStore(log, persister), supervisor)
	defer stopMonitor.Close()

	app := stopmonitor.NewApp(log, stopMonitor, stopmonitor.NewPrinter(os.Stdout, format), location)

	command := cfg.Args.Num(0)
	if command != "search" {
		stops := stopMonitor.Init(ctx)
		log.Printf("main: %d monitored stops", len(stops))
	}

	switch command {
	case "search":
		query, err := transit.ParseNearbyQuery(cfg.Search.Lat, cfg.Search.Lon, cfg.Search.Radius)
		if err != nil {
			return err
		}
		return app.Search(ctx, query)
	case "add":
		query, err := transit.ParseNearbyQuery(cfg.Search.Lat, cfg.Search.Lon, cfg.Search.Radius)
		if err != nil {
			return err
		}
		stopId, err := parseStopId(cfg.Args.Num(1))
		if err != nil {
			return err
		}
		return app.Add(ctx, query, stopId)
	case "remove":
		stopId, err := parseStopId(cfg.Args.Num(1))
		if err != nil {
			return err
		}
		return app.Remove(ctx, stopId)
	case "list":
		listCtx, listCancel := context.WithTimeout(ctx, time.Duration(cfg.Monitor.ListWaitSeconds)*time.Second)
		defer listCancel()
		return app.List(listCtx, updates)
	case "watch":
		var publisher *stopmonitor.BoardPublisher
		if cfg.NATS.Enabled {
			natsConn, err := nats.Connect(cfg.NATS.URL)
			if err != nil {
				return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.URL, err)
			}
			defer natsConn.Close()
			publisher = stopmonitor.NewBoardPublisher(log,
				stopmonitor.NewNatsBoardDestination(natsConn, cfg.NATS.BoardSubject))
		}

		// Make a channel to listen for an interrupt or terminate signal from the OS.
		// Use a buffered channel because the signal package requires it.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		return app.Watch(updates, publisher, shutdown)
	case "":
		return errors.New("missing command, expected search, add, remove, list or watch")
	}
	return fmt.Errorf("unknown command %q, expected search, add, remove, list or watch", command)
}

func parseStopId(value string) (int, error) {
	stopId, err := strconv.Atoi(value)
	if err != nil || stopId <= 0 {
		return 0, transit.InvalidField("parse stop id", "stop_id", fmt.Sprintf("%q is not a stop id", value))
	}
	return stopId, nil
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
