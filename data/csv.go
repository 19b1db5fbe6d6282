package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/xzhou2018/FleetSim/core/model"
)

// ReadTrips parses trip records from CSV with the header
// trip_id,vehicle_id,start,end,distance_km,start_location,end_location.
// Times are RFC3339. An empty trip_id gets a generated id.
func ReadTrips(r io.Reader) ([]model.Trip, error) {
	rows, err := readRows(r, 7, "trips")
	if err != nil {
		return nil, err
	}
	trips := make([]model.Trip, 0, len(rows))
	for i, row := range rows {
		start, err := time.Parse(time.RFC3339, row[2])
		if err != nil {
			return nil, fmt.Errorf("data: trips row %d: bad start time: %w", i+1, err)
		}
		end, err := time.Parse(time.RFC3339, row[3])
		if err != nil {
			return nil, fmt.Errorf("data: trips row %d: bad end time: %w", i+1, err)
		}
		dist, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("data: trips row %d: bad distance: %w", i+1, err)
		}
		id := row[0]
		if id == "" {
			id = uuid.NewString()
		}
		t := model.Trip{
			ID:            id,
			VehicleID:     row[1],
			Start:         start,
			End:           end,
			DistanceKM:    dist,
			StartLocation: row[5],
			EndLocation:   row[6],
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("data: trips row %d: %w", i+1, err)
		}
		trips = append(trips, t)
	}
	return trips, nil
}

// ReadPrices parses price records from CSV with the header
// slot,price_eur_mwh. Slots are RFC3339, 15-minute aligned.
func ReadPrices(r io.Reader) ([]model.PriceRecord, error) {
	rows, err := readRows(r, 2, "prices")
	if err != nil {
		return nil, err
	}
	prices := make([]model.PriceRecord, 0, len(rows))
	for i, row := range rows {
		slot, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("data: prices row %d: bad slot: %w", i+1, err)
		}
		price, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("data: prices row %d: bad price: %w", i+1, err)
		}
		prices = append(prices, model.PriceRecord{Slot: slot, EURPerMWh: price})
	}
	return prices, nil
}

// ReadCapacity parses capacity records from CSV with the header
// slot,available_evs. Slots are RFC3339, 5-minute aligned.
func ReadCapacity(r io.Reader) ([]model.CapacityRecord, error) {
	rows, err := readRows(r, 2, "capacity")
	if err != nil {
		return nil, err
	}
	records := make([]model.CapacityRecord, 0, len(rows))
	for i, row := range rows {
		slot, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("data: capacity row %d: bad slot: %w", i+1, err)
		}
		evs, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("data: capacity row %d: bad ev count: %w", i+1, err)
		}
		records = append(records, model.CapacityRecord{Slot: slot, AvailableEVs: evs})
	}
	return records, nil
}

// readRows reads all CSV records, skipping the header row, and checks the
// field count.
func readRows(r io.Reader, fields int, what string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("data: read %s: %w", what, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}
