package monitored

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/foundation/database"
	"github.com/jmoiron/sqlx"
	"log"
)

// schema of the monitored_stop table, one row per monitored stop in display order
const schema = "create table if not exists monitored_stop (" +
	"position integer not null primary key, " +
	"stop_id integer not null, " +
	"stop_json text not null)"

// monitoredStopRow is a row of monitored_stop
type monitoredStopRow struct {
	Position int    `db:"position"`
	StopId   int    `db:"stop_id"`
	StopJson string `db:"stop_json"`
}

// DBStorage keeps monitored stops in the monitored_stop table
type DBStorage struct {
	log *log.Logger
	db  *sqlx.DB
}

// NewDBStorage builds DBStorage
func NewDBStorage(log *log.Logger, db *sqlx.DB) *DBStorage {
	return &DBStorage{
		log: log,
		db:  db,
	}
}

// CreateSchema creates the monitored_stop table if it does not exist
func (d *DBStorage) CreateSchema(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// LoadMonitoredStops reads the saved stops in position order
func (d *DBStorage) LoadMonitoredStops(ctx context.Context) ([]transit.Stop, error) {
	rows := make([]monitoredStopRow, 0)
	err := d.db.SelectContext(ctx, &rows,
		"select position, stop_id, stop_json from monitored_stop order by position")
	if err != nil {
		return nil, fmt.Errorf("unable to load monitored stops: %w", err)
	}
	return rowsToStops(rows)
}

// SaveMonitoredStops replaces all rows with stops in a single transaction
func (d *DBStorage) SaveMonitoredStops(ctx context.Context, stops []transit.Stop) error {
	rows, err := stopsToRows(stops)
	if err != nil {
		return err
	}
	statementString := "insert into monitored_stop " +
		"(position, " +
		"stop_id, " +
		"stop_json) " +
		"values " +
		"(:position, " +
		":stop_id, " +
		":stop_json)"
	return database.Transact(ctx, d.log, d.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "delete from monitored_stop"); err != nil {
			return fmt.Errorf("unable to clear monitored stops: %w", err)
		}
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, statementString, row); err != nil {
				return fmt.Errorf("unable to save monitored stop %d: %w", row.StopId, err)
			}
		}
		return nil
	})
}

func stopsToRows(stops []transit.Stop) ([]monitoredStopRow, error) {
	result := make([]monitoredStopRow, 0, len(stops))
	for i, stop := range stops {
		data, err := json.Marshal(stop)
		if err != nil {
			return nil, fmt.Errorf("unable to encode monitored stop %d: %w", stop.StopId, err)
		}
		result = append(result, monitoredStopRow{Position: i, StopId: stop.StopId, StopJson: string(data)})
	}
	return result, nil
}

func rowsToStops(rows []monitoredStopRow) ([]transit.Stop, error) {
	result := make([]transit.Stop, 0, len(rows))
	for _, row := range rows {
		var stop transit.Stop
		if err := json.Unmarshal([]byte(row.StopJson), &stop); err != nil {
			return nil, fmt.Errorf("unable to decode monitored stop %d at position %d: %w", row.StopId, row.Position, err)
		}
		result = append(result, stop)
	}
	return result, nil
}
