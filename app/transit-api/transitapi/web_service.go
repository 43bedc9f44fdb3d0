package transitapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/foundation/cache"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

//maxRequestBody limits the size of a posted monitored stop list
const maxRequestBody = 1 << 20

//errorResponse body of every non-2xx response
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

//messageResponse body of a successful update
type messageResponse struct {
	Message string `json:"message"`
}

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//apiHandler holds what is needed to answer stop, arrival and monitored stop requests
type apiHandler struct {
	log          *logger.Logger
	loader       CatalogLoader
	arrivals     ArrivalSource
	storage      MonitoredStopStorage
	arrivalCache *cache.TTL[[]transit.Arrival]
}

//apiHandler factory
func makeApiHandler(log *logger.Logger,
	loader CatalogLoader,
	arrivals ArrivalSource,
	storage MonitoredStopStorage,
	arrivalCacheTTL time.Duration) *apiHandler {
	return &apiHandler{
		log:          log,
		loader:       loader,
		arrivals:     arrivals,
		storage:      storage,
		arrivalCache: cache.New[[]transit.Arrival](arrivalCacheTTL),
	}
}

//routes builds the router for all api requests
func (a *apiHandler) routes() http.Handler {
	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stops", a.serveStops).Methods(http.MethodGet)
	api.HandleFunc("/arrivals/{stop_id}", a.serveArrivals).Methods(http.MethodGet)
	api.HandleFunc("/monitored-stops", a.serveMonitoredStops).Methods(http.MethodGet)
	api.HandleFunc("/monitored-stops", a.saveMonitoredStops).Methods(http.MethodPost)
	return otelhttp.NewHandler(r, "transit-api")
}

//serveStops answers nearby stop searches from the current catalog
func (a *apiHandler) serveStops(w http.ResponseWriter, r *http.Request) {
	query, err := transit.ParseNearbyQuery(r.FormValue("lat"), r.FormValue("lon"), r.FormValue("radius"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	current := a.loader.Current()
	if current == nil {
		a.writeError(w, http.StatusServiceUnavailable, errors.New("stop catalog is not loaded"))
		return
	}
	a.writeJSON(w, http.StatusOK, current.Nearby(query))
}

//serveArrivals answers arrival predictions for a stop and its related stops
func (a *apiHandler) serveArrivals(w http.ResponseWriter, r *http.Request) {
	stopId, err := strconv.Atoi(mux.Vars(r)["stop_id"])
	if err != nil || stopId <= 0 {
		a.writeError(w, http.StatusBadRequest,
			transit.InvalidField("get arrivals", "stop_id", "stop_id must be a positive integer"))
		return
	}
	relatedStopIds, err := parseRelatedStopIds(r.FormValue("related_stop_ids"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	key := fmt.Sprintf("%d:%v", stopId, relatedStopIds)
	arrivals, err := a.arrivalCache.GetOrLoad(key, func() ([]transit.Arrival, error) {
		return a.arrivals.Arrivals(r.Context(), stopId, relatedStopIds)
	})
	if err != nil {
		a.log.Printf("unable to retrieve arrivals for stop %d related:%v, error:%v", stopId, relatedStopIds, err)
		a.writeError(w, http.StatusBadGateway, fmt.Errorf("arrivals for stop %d are unavailable", stopId))
		return
	}
	if arrivals == nil {
		arrivals = []transit.Arrival{}
	}
	a.writeJSON(w, http.StatusOK, arrivals)
}

//parseRelatedStopIds accepts a json array such as [1,2] or a comma separated list
func parseRelatedStopIds(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil, nil
	}
	var result []int
	if strings.HasPrefix(value, "[") {
		if err := json.Unmarshal([]byte(value), &result); err != nil {
			return nil, transit.InvalidField("get arrivals", "related_stop_ids",
				"related_stop_ids must be a list of stop ids")
		}
	} else {
		for _, part := range strings.Split(value, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, transit.InvalidField("get arrivals", "related_stop_ids",
					"related_stop_ids must be a list of stop ids")
			}
			result = append(result, id)
		}
	}
	for _, id := range result {
		if id <= 0 {
			return nil, transit.InvalidField("get arrivals", "related_stop_ids",
				"related_stop_ids must be positive integers")
		}
	}
	return result, nil
}

//serveMonitoredStops sends the saved monitored stops
func (a *apiHandler) serveMonitoredStops(w http.ResponseWriter, r *http.Request) {
	stops, err := a.storage.LoadMonitoredStops(r.Context())
	if err != nil {
		a.log.Printf("unable to load monitored stops, error:%v", err)
		a.writeError(w, http.StatusInternalServerError, errors.New("monitored stops are unavailable"))
		return
	}
	if stops == nil {
		stops = []transit.Stop{}
	}
	a.writeJSON(w, http.StatusOK, stops)
}

//saveMonitoredStops replaces the saved monitored stops with the posted list
func (a *apiHandler) saveMonitoredStops(w http.ResponseWriter, r *http.Request) {
	var stops []transit.Stop
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&stops); err != nil {
		a.writeError(w, http.StatusBadRequest,
			transit.NewError(transit.InvalidInput, "save monitored stops", err))
		return
	}
	if err := transit.ValidateStops(stops); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.storage.SaveMonitoredStops(r.Context(), stops); err != nil {
		a.log.Printf("unable to save %d monitored stops, error:%v", len(stops), err)
		a.writeError(w, http.StatusInternalServerError, errors.New("monitored stops could not be saved"))
		return
	}
	a.log.Printf("saved %d monitored stops", len(stops))
	a.writeJSON(w, http.StatusOK, messageResponse{Message: "Stops saved successfully"})
}

//writeError sends err as errorResponse, naming the invalid field when present
func (a *apiHandler) writeError(w http.ResponseWriter, status int, err error) {
	response := errorResponse{Error: err.Error()}
	var transitErr *transit.Error
	if errors.As(err, &transitErr) && transitErr.Field != "" {
		response.Field = transitErr.Field
		response.Error = transitErr.Err.Error()
	}
	a.writeJSON(w, status, response)
}

//writeJSON sends value as json with status
func (a *apiHandler) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		a.log.Printf("Error marshaling response to json: error:%v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(jsonData); err != nil {
		a.log.Printf("Error writing json response: %s", err)
	}
}

//createServer creates configured http.Server for api requests
func createServer(handler *apiHandler, cfg ServiceConfig) *http.Server {
	return &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(cfg.HttpPort)}, ":"),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		Handler:      handler.routes(),
	}
}

//runWebService starts up the api web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	handler *apiHandler,
	cfg ServiceConfig,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	srv := createServer(handler, cfg)
	log.Printf("Starting server on port %d", cfg.HttpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer serverCancelFunc()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
