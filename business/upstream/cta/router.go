package cta

import (
	"context"
	"github.com/OpenTransitTools/stopwatch/business/catalog"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"golang.org/x/sync/errgroup"
	"sort"
)

// Router sends requests for train stations and platforms to TrainTracker and all other stops to BusTracker
type Router struct {
	trains *TrainTracker
	buses  *BusTracker
}

// NewRouter builds Router
func NewRouter(trains *TrainTracker, buses *BusTracker) *Router {
	return &Router{trains: trains, buses: buses}
}

// Arrivals returns arrivals at stopId and relatedStopIds ordered by minutes
func (r *Router) Arrivals(ctx context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error) {
	stationIds := make([]int, 0)
	busStopIds := make([]int, 0)
	seenStations := make(map[int]bool)
	for _, id := range append([]int{stopId}, relatedStopIds...) {
		if id < 40000 && catalog.Classify(id) != catalog.TrainPlatform {
			busStopIds = append(busStopIds, id)
			continue
		}
		stationId := catalog.ParentStopId(id)
		if !seenStations[stationId] {
			seenStations[stationId] = true
			stationIds = append(stationIds, stationId)
		}
	}

	results := make([][]transit.Arrival, len(stationIds)+1)
	group, groupCtx := errgroup.WithContext(ctx)
	for i, stationId := range stationIds {
		i, stationId := i, stationId
		group.Go(func() error {
			arrivals, err := r.trains.Arrivals(groupCtx, stationId)
			results[i] = arrivals
			return err
		})
	}
	if len(busStopIds) > 0 {
		group.Go(func() error {
			arrivals, err := r.buses.Arrivals(groupCtx, busStopIds)
			results[len(stationIds)] = arrivals
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := make([]transit.Arrival, 0)
	for _, arrivals := range results {
		result = append(result, arrivals...)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Minutes < result[j].Minutes
	})
	return result, nil
}
