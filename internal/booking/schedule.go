// Package booking answers bus availability questions from a spreadsheet
// schedule, directly or through a tool-calling chat model.
package booking

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var ErrScheduleNotFound = errors.New("bus schedule data file not found")

const (
	maxBuses        = 3
	msgNotFound     = "Bus schedule data file not found."
	msgNoBuses      = "No buses available for the selected route."
	statusSucceeded = "success"
)

var requiredColumns = []string{
	"Ticket_ID", "Bus_No", "Source", "Destination", "Travel_Date",
	"Departure", "Arrival", "Bus_Type", "Fare (₹)", "Available_Seats",
}

type Bus struct {
	TicketID       string `json:"ticket_id"`
	BusNo          string `json:"bus_no"`
	Departure      string `json:"departure"`
	Arrival        string `json:"arrival"`
	BusType        string `json:"bus_type"`
	Fare           int    `json:"fare"`
	AvailableSeats int    `json:"available_seats"`
}

// Availability is also the tool result handed back to the model
type Availability struct {
	Status         string `json:"status,omitempty"`
	AvailableBuses []Bus  `json:"available_buses"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Schedule reads the first sheet of an xlsx file on every lookup
type Schedule struct {
	path string
}

func NewSchedule(path string) *Schedule {
	return &Schedule{path: path}
}

// CheckAvailability lists up to three buses on the route with free seats,
// earliest departure first. An empty travelDate matches any date.
func (s *Schedule) CheckAvailability(source, destination, travelDate string) (*Availability, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, ErrScheduleNotFound
	}
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}

	source = strings.ToLower(strings.TrimSpace(source))
	destination = strings.ToLower(strings.TrimSpace(destination))
	travelDate = strings.TrimSpace(travelDate)

	var buses []Bus
	for _, r := range rows {
		if strings.ToLower(r["Source"]) != source || strings.ToLower(r["Destination"]) != destination {
			continue
		}
		seats := toInt(r["Available_Seats"])
		if seats <= 0 {
			continue
		}
		if travelDate != "" && r["Travel_Date"] != travelDate {
			continue
		}
		buses = append(buses, Bus{
			TicketID:       r["Ticket_ID"],
			BusNo:          r["Bus_No"],
			Departure:      r["Departure"],
			Arrival:        r["Arrival"],
			BusType:        r["Bus_Type"],
			Fare:           toInt(r["Fare (₹)"]),
			AvailableSeats: seats,
		})
	}

	if len(buses) == 0 {
		return &Availability{Status: statusSucceeded, AvailableBuses: []Bus{}, Message: msgNoBuses}, nil
	}
	slices.SortStableFunc(buses, func(a, b Bus) int {
		return compareDeparture(a.Departure, b.Departure)
	})
	return &Availability{Status: statusSucceeded, AvailableBuses: buses[:min(maxBuses, len(buses))]}, nil
}

// readRows returns the data rows keyed by trimmed header
func (s *Schedule) readRows() ([]map[string]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	for _, col := range requiredColumns {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("schedule is missing column %q", col)
		}
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func toInt(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

var departureLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

func parseDeparture(s string) (time.Time, bool) {
	for _, layout := range departureLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func compareDeparture(a, b string) int {
	ta, okA := parseDeparture(a)
	tb, okB := parseDeparture(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

// Result wraps CheckAvailability errors into the tool result shape
func (s *Schedule) Result(source, destination, travelDate string) *Availability {
	res, err := s.CheckAvailability(source, destination, travelDate)
	switch {
	case errors.Is(err, ErrScheduleNotFound):
		return &Availability{Error: msgNotFound}
	case err != nil:
		return &Availability{Error: err.Error()}
	}
	return res
}
