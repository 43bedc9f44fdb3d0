package cta

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/foundation/httpclient"
	"golang.org/x/sync/errgroup"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// busTimeLayout used by the bus tracker for timestamps in Chicago local time
const busTimeLayout = "20060102 15:04"

// DefaultBusTrackerURL of the bus tracker predictions api
const DefaultBusTrackerURL = "http://www.ctabustracker.com/bustime/api/v2/getpredictions"

// maxStopsPerRequest is the most stop ids the bus tracker accepts in one request
const maxStopsPerRequest = 10

type busTrackerResponse struct {
	Body struct {
		Predictions []busPrediction `json:"prd"`
		Errors      []busError      `json:"error"`
	} `json:"bustime-response"`
}

type busPrediction struct {
	Timestamp     string `json:"tmstmp"`
	StopId        string `json:"stpid"`
	StopName      string `json:"stpnm"`
	Route         string `json:"rt"`
	Destination   string `json:"des"`
	PredictedTime string `json:"prdtm"`
	Delayed       bool   `json:"dly"`
	Countdown     string `json:"prdctdn"`
}

// busError is reported per stop when it has no predictions, or without a stop for request failures
type busError struct {
	StopId  string `json:"stpid"`
	Route   string `json:"rt"`
	Message string `json:"msg"`
}

// BusTracker reads arrivals at bus stops
type BusTracker struct {
	client  *http.Client
	baseURL string
	key     string
	now     func() time.Time
}

// NewBusTracker builds BusTracker for the api at baseURL
func NewBusTracker(client *http.Client, baseURL string, key string) *BusTracker {
	return &BusTracker{
		client:  client,
		baseURL: baseURL,
		key:     key,
		now:     time.Now,
	}
}

// Arrivals returns predicted arrivals at all of stopIds ordered by minutes.
// Stop ids are requested in batches the tracker accepts, batches are fetched concurrently.
func (b *BusTracker) Arrivals(ctx context.Context, stopIds []int) ([]transit.Arrival, error) {
	batches := batchStopIds(stopIds, maxStopsPerRequest)
	results := make([][]transit.Arrival, len(batches))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		group.Go(func() error {
			arrivals, err := b.fetchBatch(groupCtx, batch)
			if err != nil {
				return err
			}
			results[i] = arrivals
			return nil
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

func (b *BusTracker) fetchBatch(ctx context.Context, stopIds []int) ([]transit.Arrival, error) {
	ids := make([]string, 0, len(stopIds))
	for _, id := range stopIds {
		ids = append(ids, strconv.Itoa(id))
	}
	values := url.Values{}
	values.Set("key", b.key)
	values.Set("stpid", strings.Join(ids, ","))
	values.Set("format", "json")

	var response busTrackerResponse
	if err := httpclient.GetJSON(ctx, b.client, b.baseURL+"?"+values.Encode(), &response); err != nil {
		return nil, fmt.Errorf("bus tracker request for stops %v failed: %w", stopIds, err)
	}
	for _, busErr := range response.Body.Errors {
		// errors naming a stop mean that stop has no predictions right now
		if busErr.StopId == "" {
			return nil, fmt.Errorf("bus tracker error for stops %v: %s", stopIds, busErr.Message)
		}
	}

	now := b.now().In(chicago)
	result := make([]transit.Arrival, 0, len(response.Body.Predictions))
	for _, prediction := range response.Body.Predictions {
		predictedTime, err := parseLocalTime(busTimeLayout, prediction.PredictedTime)
		if err != nil {
			return nil, fmt.Errorf("bus tracker returned invalid prediction time %q: %w", prediction.PredictedTime, err)
		}
		reference := now
		if timestamp, err := parseLocalTime(busTimeLayout, prediction.Timestamp); err == nil {
			reference = timestamp
		}
		stopId, err := strconv.Atoi(prediction.StopId)
		if err != nil {
			return nil, fmt.Errorf("bus tracker returned invalid stop id %q: %w", prediction.StopId, err)
		}
		result = append(result, transit.Arrival{
			Route:       prediction.Route,
			Destination: prediction.Destination,
			ArrivalTime: prediction.PredictedTime,
			Minutes:     minutesUntil(reference, predictedTime),
			IsDelayed:   prediction.Delayed,
			StopId:      stopId,
		})
	}
	return result, nil
}

// batchStopIds splits stopIds into slices of at most size ids, dropping duplicates
func batchStopIds(stopIds []int, size int) [][]int {
	seen := make(map[int]bool, len(stopIds))
	result := make([][]int, 0)
	var batch []int
	for _, id := range stopIds {
		if seen[id] {
			continue
		}
		seen[id] = true
		batch = append(batch, id)
		if len(batch) == size {
			result = append(result, batch)
			batch = nil
		}
	}
	if len(batch) > 0 {
		result = append(result, batch)
	}
	return result
}
