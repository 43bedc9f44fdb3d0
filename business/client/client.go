// Package client talks to the transit api on behalf of the stop monitor.
// Every failure to reach the api or to read a valid response is reported as transit.UpstreamUnavailable.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/foundation/httpclient"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client of the transit api rooted at baseURL
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds Client. timeout bounds each request.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(timeout),
	}
}

// SearchStops returns train and bus stops within query.Radius miles of query's point.
// query is validated first, out of range input is returned as InvalidInput without contacting the api.
func (c *Client) SearchStops(ctx context.Context, query transit.NearbyQuery) (transit.NearbyStops, error) {
	if err := query.Validate(); err != nil {
		return transit.NearbyStops{}, err
	}
	values := url.Values{}
	values.Set("lat", formatFloat(query.Lat))
	values.Set("lon", formatFloat(query.Lon))
	values.Set("radius", formatFloat(query.Radius))

	const op = "search stops"
	var result transit.NearbyStops
	if err := httpclient.GetJSON(ctx, c.http, c.baseURL+"/stops?"+values.Encode(), &result); err != nil {
		return transit.NearbyStops{}, transit.NewError(transit.UpstreamUnavailable, op, err)
	}
	if err := transit.ValidateStops(result.All()); err != nil {
		return transit.NearbyStops{}, transit.NewError(transit.UpstreamUnavailable, op, err)
	}
	if result.TrainStops == nil {
		result.TrainStops = []transit.Stop{}
	}
	if result.BusStops == nil {
		result.BusStops = []transit.Stop{}
	}
	return result, nil
}

// FetchArrivals returns arrivals at stopId and each of relatedStopIds in a single request
func (c *Client) FetchArrivals(ctx context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error) {
	op := fmt.Sprintf("fetch arrivals for stop %d", stopId)
	arrivalsURL := c.baseURL + "/arrivals/" + strconv.Itoa(stopId)
	if len(relatedStopIds) > 0 {
		related, err := json.Marshal(relatedStopIds)
		if err != nil {
			return nil, transit.NewError(transit.InvalidInput, op, err)
		}
		arrivalsURL += "?" + url.Values{"related_stop_ids": {string(related)}}.Encode()
	}

	var result []transit.Arrival
	if err := httpclient.GetJSON(ctx, c.http, arrivalsURL, &result); err != nil {
		return nil, transit.NewError(transit.UpstreamUnavailable, op, err)
	}
	if err := transit.ValidateArrivals(result); err != nil {
		return nil, transit.NewError(transit.UpstreamUnavailable, op, err)
	}
	if result == nil {
		result = []transit.Arrival{}
	}
	return result, nil
}

// LoadMonitoredStops reads the saved monitored stops
func (c *Client) LoadMonitoredStops(ctx context.Context) ([]transit.Stop, error) {
	const op = "load monitored stops"
	var result []transit.Stop
	if err := httpclient.GetJSON(ctx, c.http, c.baseURL+"/monitored-stops", &result); err != nil {
		return nil, transit.NewError(transit.UpstreamUnavailable, op, err)
	}
	if err := transit.ValidateStops(result); err != nil {
		return nil, transit.NewError(transit.UpstreamUnavailable, op, err)
	}
	if result == nil {
		result = []transit.Stop{}
	}
	return result, nil
}

// SaveMonitoredStops replaces the saved monitored stops with stops
func (c *Client) SaveMonitoredStops(ctx context.Context, stops []transit.Stop) error {
	if stops == nil {
		stops = []transit.Stop{}
	}
	if err := httpclient.PostJSON(ctx, c.http, c.baseURL+"/monitored-stops", stops, nil); err != nil {
		return transit.NewError(transit.UpstreamUnavailable, "save monitored stops", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
