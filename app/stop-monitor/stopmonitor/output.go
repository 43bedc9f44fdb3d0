package stopmonitor

import (
	"encoding/json"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"gopkg.in/yaml.v3"
	"io"
	"strconv"
	"strings"
)

// Format of printed output
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
	YAMLFormat Format = "yaml"
)

// ParseFormat returns the Format named by value
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case TextFormat:
		return TextFormat, nil
	case JSONFormat:
		return JSONFormat, nil
	case YAMLFormat:
		return YAMLFormat, nil
	}
	return "", fmt.Errorf("unknown output format %q, expected text, json or yaml", value)
}

// Printer writes stops and boards to out in a Format
type Printer struct {
	out    io.Writer
	format Format
}

// NewPrinter builds Printer
func NewPrinter(out io.Writer, format Format) *Printer {
	return &Printer{
		out:    out,
		format: format,
	}
}

// PrintNearby writes the result of a nearby stop search
func (p *Printer) PrintNearby(nearby transit.NearbyStops) error {
	if p.format != TextFormat {
		return p.encode(nearby)
	}
	var sb strings.Builder
	sb.WriteString("Train stops:\n")
	writeStopLines(&sb, nearby.TrainStops)
	sb.WriteString("Bus stops:\n")
	writeStopLines(&sb, nearby.BusStops)
	_, err := io.WriteString(p.out, sb.String())
	return err
}

// PrintStops writes the monitored stops
func (p *Printer) PrintStops(stops []transit.Stop) error {
	if p.format != TextFormat {
		if stops == nil {
			stops = []transit.Stop{}
		}
		return p.encode(stops)
	}
	var sb strings.Builder
	sb.WriteString("Monitored stops:\n")
	writeStopLines(&sb, stops)
	_, err := io.WriteString(p.out, sb.String())
	return err
}

// PrintBoards writes every board
func (p *Printer) PrintBoards(boards []Board) error {
	if p.format != TextFormat {
		if boards == nil {
			boards = []Board{}
		}
		return p.encode(boards)
	}
	if len(boards) == 0 {
		_, err := io.WriteString(p.out, "No monitored stops\n")
		return err
	}
	for i := range boards {
		if err := p.PrintBoard(&boards[i]); err != nil {
			return err
		}
	}
	return nil
}

// PrintBoard writes one board
func (p *Printer) PrintBoard(board *Board) error {
	if p.format != TextFormat {
		return p.encode(board)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d) %s [%s]", board.StopName, board.StopId, strings.Join(board.Routes, ", "),
		strings.ToLower(board.State))
	if board.HolidayService {
		sb.WriteString(" holiday service")
	}
	sb.WriteString("\n")
	if len(board.Groups) == 0 {
		sb.WriteString("  no arrivals\n")
	}
	for _, group := range board.Groups {
		fmt.Fprintf(&sb, "  %s: %s\n", group.Destination, formatArrivals(group.Arrivals))
	}
	if board.Error != "" {
		fmt.Fprintf(&sb, "  unavailable: %s\n", board.Error)
	}
	_, err := io.WriteString(p.out, sb.String())
	return err
}

func (p *Printer) encode(value interface{}) error {
	if p.format == YAMLFormat {
		encoder := yaml.NewEncoder(p.out)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	}
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeStopLines(sb *strings.Builder, stops []transit.Stop) {
	if len(stops) == 0 {
		sb.WriteString("  none\n")
	}
	for _, stop := range stops {
		fmt.Fprintf(sb, "  %-6d %s (%s) %.2f mi", stop.StopId, stop.StopName, strings.Join(stop.Routes, ", "),
			stop.Distance)
		if len(stop.RelatedStopIds) > 0 {
			related := make([]string, 0, len(stop.RelatedStopIds))
			for _, id := range stop.RelatedStopIds {
				related = append(related, strconv.Itoa(id))
			}
			fmt.Fprintf(sb, " related: %s", strings.Join(related, ", "))
		}
		sb.WriteString("\n")
	}
}

//formatArrivals lists arrival minutes, due when zero or less
func formatArrivals(arrivals []transit.Arrival) string {
	result := make([]string, 0, len(arrivals))
	for _, arrival := range arrivals {
		text := "due"
		if arrival.Minutes > 0 {
			text = fmt.Sprintf("%d min", arrival.Minutes)
		}
		if arrival.IsDelayed {
			text += " (delayed)"
		}
		result = append(result, text)
	}
	return strings.Join(result, ", ")
}
