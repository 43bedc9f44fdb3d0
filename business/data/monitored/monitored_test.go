package monitored

import (
	"context"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/matryer/is"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testStops() []transit.Stop {
	return []transit.Stop{
		{StopId: 1002, StopName: "State/Lake", Latitude: 41.8848, Longitude: -87.6281, Routes: []string{"22"},
			Distance: 0.47, RelatedStopIds: []int{1001}},
		{StopId: 40260, StopName: "State/Lake", Latitude: 41.88574, Longitude: -87.627835,
			Routes: []string{"Brown", "Green"}, Distance: 0.54},
	}
}

func TestFileStorage(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config", "monitored_stops.json")
	storage := NewFileStorage(log.New(io.Discard, "", 0), path)

	stops, err := storage.LoadMonitoredStops(context.Background())
	is.NoErr(err)
	is.Equal(len(stops), 0) // missing file

	is.NoErr(storage.SaveMonitoredStops(context.Background(), testStops()))
	stops, err = storage.LoadMonitoredStops(context.Background())
	is.NoErr(err)
	is.Equal(stops, testStops())

	data, err := os.ReadFile(path)
	is.NoErr(err)
	is.True(strings.HasPrefix(string(data), "[\n  {\n    \"stop_id\": 1002,"))

	is.NoErr(storage.SaveMonitoredStops(context.Background(), nil))
	data, err = os.ReadFile(path)
	is.NoErr(err)
	is.Equal(string(data), "[]")
}

func TestFileStorage_unreadableFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "monitored_stops.json")
	is.NoErr(os.WriteFile(path, []byte(`[{"stop_id":`), 0644))
	var logOutput strings.Builder
	storage := NewFileStorage(log.New(&logOutput, "", 0), path)

	stops, err := storage.LoadMonitoredStops(context.Background())
	is.NoErr(err)
	is.True(stops != nil)
	is.Equal(len(stops), 0)
	is.True(strings.Contains(logOutput.String(), "ignoring unreadable"))
}

func Test_stopRows(t *testing.T) {
	rows, err := stopsToRows(testStops())
	if err != nil {
		t.Fatalf("stopsToRows() error %v", err)
	}
	if rows[1].Position != 1 || rows[1].StopId != 40260 {
		t.Errorf("stopsToRows() got %+v", rows[1])
	}
	stops, err := rowsToStops(rows)
	if err != nil {
		t.Fatalf("rowsToStops() error %v", err)
	}
	if !reflect.DeepEqual(stops, testStops()) {
		t.Errorf("rowsToStops() got = %+v, want %+v", stops, testStops())
	}

	_, err = rowsToStops([]monitoredStopRow{{Position: 0, StopId: 1001, StopJson: "{"}})
	if err == nil {
		t.Errorf("expected error decoding invalid stop_json")
	}
}
