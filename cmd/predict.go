package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xzhou2018/FleetSim/config"
	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/core/prediction"
	"github.com/xzhou2018/FleetSim/data"
)

var (
	predictMarket string
	predictAt     string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Ad-hoc forecast queries against the historical datasets",
}

var predictPriceCmd = &cobra.Command{
	Use:   "price",
	Short: "Predict the clearing price for a future timeslot",
	RunE:  runPredictPrice,
}

var predictCapacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Predict the fleet charging capacity for a future timeslot",
	RunE:  runPredictCapacity,
}

func init() {
	predictCmd.PersistentFlags().StringVar(&predictAt, "at", "", "timeslot (RFC3339)")
	predictPriceCmd.Flags().StringVarP(&predictMarket, "market", "m", "intraday", "market: intraday or balancing")
	predictCmd.AddCommand(predictPriceCmd)
	predictCmd.AddCommand(predictCapacityCmd)
	rootCmd.AddCommand(predictCmd)
}

func buildEngine() (*prediction.HistoryEngine, time.Time, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load config: %w", err)
	}
	ds, err := data.Load(cfg.Data)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load datasets: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, predictAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse --at: %w", err)
	}
	eng, err := prediction.NewHistoryEngine(ds.IntradayPrices, ds.BalancingPrices, ds.Capacity,
		cfg.Simulation.ChargingSpeedKW, ds.FleetSize())
	if err != nil {
		return nil, time.Time{}, err
	}
	return eng, ts, nil
}

func runPredictPrice(cmd *cobra.Command, args []string) error {
	eng, ts, err := buildEngine()
	if err != nil {
		return err
	}
	var kind model.MarketKind
	switch predictMarket {
	case "intraday":
		kind = model.MarketIntraday
	case "balancing":
		kind = model.MarketBalancing
	default:
		return fmt.Errorf("unknown market %q", predictMarket)
	}
	price, err := eng.PredictClearingPrice(kind, ts)
	if err != nil {
		return err
	}
	fmt.Printf("predicted %s clearing price at %s: %.2f EUR/MWh\n", predictMarket, ts.Format(time.RFC3339), price)
	return nil
}

func runPredictCapacity(cmd *cobra.Command, args []string) error {
	eng, ts, err := buildEngine()
	if err != nil {
		return err
	}
	kw, err := eng.PredictCapacity(ts)
	if err != nil {
		return err
	}
	fmt.Printf("predicted fleet capacity at %s: %.2f kW\n", ts.Format(time.RFC3339), kw)
	return nil
}
