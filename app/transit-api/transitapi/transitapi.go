// Package transitapi serves nearby stop searches, arrival predictions and the monitored stop snapshot
package transitapi

import (
	"context"
	"github.com/OpenTransitTools/stopwatch/business/catalog"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	logger "log"
	"os"
	"sync"
	"time"
)

// ArrivalSource retrieves arrival predictions for a stop and the stops related to it
type ArrivalSource interface {
	Arrivals(ctx context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error)
}

// MonitoredStopStorage saves the complete list of monitored stops
type MonitoredStopStorage interface {
	LoadMonitoredStops(ctx context.Context) ([]transit.Stop, error)
	SaveMonitoredStops(ctx context.Context, stops []transit.Stop) error
}

// CatalogLoader provides the current stop catalog and refreshes it
type CatalogLoader interface {
	Current() *catalog.Catalog
	Refresh(ctx context.Context) (*catalog.Catalog, error)
}

// ServiceConfig web service and background loop settings
type ServiceConfig struct {
	HttpPort               int
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	ShutdownTimeout        time.Duration
	CatalogRefreshInterval time.Duration
	ArrivalCacheTTL        time.Duration
}

//StartServices brings up the catalog refresh loop and the web service. Returns after shutdown signal
func StartServices(log *logger.Logger,
	cfg ServiceConfig,
	loader CatalogLoader,
	arrivals ArrivalSource,
	storage MonitoredStopStorage,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	//create shutdown channels
	catalogLoopShutdown := make(chan bool, 1)
	webServiceShutdown := make(chan bool, 1)

	handler := makeApiHandler(log, loader, arrivals, storage, cfg.ArrivalCacheTTL)

	//start all child services
	wg.Add(2)
	go runCatalogLoop(log, &wg, loader, cfg.CatalogRefreshInterval, catalogLoopShutdown)
	go runWebService(log, &wg, handler, cfg, webServiceShutdown)

	<-shutdownSignal
	log.Printf("Exiting on shutdown signal, shutting down subroutines")
	catalogLoopShutdown <- true
	webServiceShutdown <- true
	wg.Wait()
	log.Printf("Subroutines shut down, exiting transit api")
}

//runCatalogLoop refreshes the stop catalog every refreshInterval until shutdownSignal
func runCatalogLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	loader CatalogLoader,
	refreshInterval time.Duration,
	shutdownSignal chan bool) {
	defer wg.Done()

	if refreshInterval <= 0 {
		log.Printf("catalog refresh disabled")
		<-shutdownSignal
		return
	}

	for {
		select {
		case <-shutdownSignal:
			log.Printf("Exiting catalog loop on shutdown signal")
			return
		case <-time.After(refreshInterval):
		}

		ctx, cancel := context.WithTimeout(context.Background(), refreshInterval)
		current, err := loader.Refresh(ctx)
		cancel()
		if err != nil {
			log.Printf("unable to refresh stop catalog, error:%v", err)
			continue
		}
		log.Printf("stop catalog has %d entries", current.Len())
	}
}
