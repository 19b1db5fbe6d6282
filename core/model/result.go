package model

import "time"

// Result summarises a finished simulation run for the CLI.
type Result struct {
	Name            string
	TotalChargedKWh float64
	ImbalanceKW     float64
	BalanceEUR      float64
	RefusedRentals  int
	ShortfallKWh    float64
	Bids            int
	AcceptedBids    int
	Elapsed         time.Duration
}
