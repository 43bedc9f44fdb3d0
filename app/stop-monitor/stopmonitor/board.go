package stopmonitor

import (
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/business/monitor"
	"time"
)

// Board is the arrival board of one monitored stop, as printed and published
type Board struct {
	StopId         int                    `json:"stop_id" yaml:"stop_id"`
	StopName       string                 `json:"stop_name" yaml:"stop_name"`
	Routes         []string               `json:"routes" yaml:"routes"`
	RelatedStopIds []int                  `json:"related_stop_ids,omitempty" yaml:"related_stop_ids,omitempty"`
	State          string                 `json:"state" yaml:"state"`
	Groups         []transit.ArrivalGroup `json:"groups" yaml:"groups"`
	Error          string                 `json:"error,omitempty" yaml:"error,omitempty"`
	LastSuccess    *time.Time             `json:"last_success,omitempty" yaml:"last_success,omitempty"`
	HolidayService bool                   `json:"holiday_service" yaml:"holiday_service"`
	GeneratedAt    time.Time              `json:"generated_at" yaml:"generated_at"`
}

//makeBoard builds Board from snapshot
func makeBoard(snapshot monitor.Snapshot, holidayService bool, now time.Time) Board {
	board := Board{
		StopId:         snapshot.StopId,
		StopName:       snapshot.Stop.StopName,
		Routes:         snapshot.Stop.Routes,
		RelatedStopIds: snapshot.Stop.RelatedStopIds,
		State:          snapshot.State.String(),
		Groups:         snapshot.Groups,
		HolidayService: holidayService,
		GeneratedAt:    now,
	}
	if board.Routes == nil {
		board.Routes = []string{}
	}
	if board.Groups == nil {
		board.Groups = []transit.ArrivalGroup{}
	}
	if snapshot.Err != nil {
		board.Error = snapshot.Err.Error()
	}
	if snapshot.HasData() {
		lastSuccess := snapshot.LastSuccess
		board.LastSuccess = &lastSuccess
	}
	return board
}
