// Package gtfsrt reads arrival predictions from a GTFS-realtime trip updates feed
package gtfsrt

import (
	"context"
	"fmt"
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/foundation/httpclient"
	"google.golang.org/protobuf/proto"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// arrivalTimeLayout for Arrival.ArrivalTime
const arrivalTimeLayout = "2006-01-02T15:04:05"

// delayedAfterSeconds is the delay above which an arrival is reported as delayed
const delayedAfterSeconds = 120

// StopNamer looks up stop names for trip destinations
type StopNamer interface {
	StopName(stopId int) (string, bool)
}

// Source reads arrivals from a trip updates feed
type Source struct {
	client   *http.Client
	feedURL  string
	stops    func() StopNamer
	location *time.Location
	now      func() time.Time
}

// NewSource builds Source. stops is called on each request so a refreshed catalog is used; it may return nil.
func NewSource(client *http.Client, feedURL string, location *time.Location, stops func() StopNamer) *Source {
	if location == nil {
		location = time.Local
	}
	return &Source{
		client:   client,
		feedURL:  feedURL,
		stops:    stops,
		location: location,
		now:      time.Now,
	}
}

// Arrivals returns predicted arrivals at stopId and relatedStopIds ordered by minutes
func (s *Source) Arrivals(ctx context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error) {
	body, err := httpclient.GetBytes(ctx, s.client, s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve trip updates feed: %w", err)
	}
	feed := &gtfs.FeedMessage{}
	if err = proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("unable to parse trip updates feed: %w", err)
	}

	wanted := map[string]int{strconv.Itoa(stopId): stopId}
	for _, id := range relatedStopIds {
		wanted[strconv.Itoa(id)] = id
	}
	var namer StopNamer
	if s.stops != nil {
		namer = s.stops()
	}
	return feedArrivals(feed, wanted, namer, s.now(), s.location), nil
}

// feedArrivals extracts arrivals at wanted stops from feed
func feedArrivals(feed *gtfs.FeedMessage,
	wanted map[string]int,
	namer StopNamer,
	now time.Time,
	location *time.Location) []transit.Arrival {
	result := make([]transit.Arrival, 0)
	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil || entity.GetIsDeleted() {
			continue
		}
		if tripUpdate.GetTrip().GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
			continue
		}
		updates := tripUpdate.GetStopTimeUpdate()
		if len(updates) == 0 {
			continue
		}
		destination := destinationName(updates[len(updates)-1].GetStopId(), namer)
		routeId := tripUpdate.GetTrip().GetRouteId()

		for _, update := range updates {
			stopId, present := wanted[update.GetStopId()]
			if !present {
				continue
			}
			if update.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
				continue
			}
			event := update.GetArrival()
			if event.GetTime() == 0 {
				event = update.GetDeparture()
			}
			if event.GetTime() == 0 {
				continue
			}
			arrivalTime := time.Unix(event.GetTime(), 0).In(location)
			delay := event.GetDelay()
			if delay == 0 {
				delay = tripUpdate.GetDelay()
			}
			result = append(result, transit.Arrival{
				Route:       routeId,
				Destination: destination,
				ArrivalTime: arrivalTime.Format(arrivalTimeLayout),
				Minutes:     int(arrivalTime.Sub(now).Minutes()),
				IsDelayed:   delay > delayedAfterSeconds,
				StopId:      stopId,
			})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Minutes < result[j].Minutes
	})
	return result
}

// destinationName returns the catalog name of the trip's last updated stop, or its id when unknown
func destinationName(lastStopId string, namer StopNamer) string {
	if namer != nil {
		if id, err := strconv.Atoi(lastStopId); err == nil {
			if name, present := namer.StopName(id); present {
				return name
			}
		}
	}
	return lastStopId
}
