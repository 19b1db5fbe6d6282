package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xzhou2018/FleetSim/config"
	coremetrics "github.com/xzhou2018/FleetSim/core/metrics"
	"github.com/xzhou2018/FleetSim/core/simulation"
	"github.com/xzhou2018/FleetSim/data"
	"github.com/xzhou2018/FleetSim/infra/logger"
	"github.com/xzhou2018/FleetSim/infra/metrics"
	"github.com/xzhou2018/FleetSim/internal/eventbus"
)

var runName string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Start the EV simulation",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&runName, "name", "n", "", "name of the simulation run")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runName != "" {
		cfg.Simulation.Name = runName
	}
	cfg.Simulation.SetDefaults()

	logFile, err := openLogFile(cfg.Simulation.Name)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logg := logger.NewZerologLoggerTo(logFile, "simulation")

	ds, err := data.Load(cfg.Data)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	bus := eventbus.New()
	defer bus.Close()
	sink, err := buildSink(cfg.Metrics, logg)
	if err != nil {
		return err
	}
	if sink != nil {
		metrics.StartEventCollector(ctx, bus, sink)
	}

	s, err := simulation.New(cfg.Simulation, ds, bus, logg)
	if err != nil {
		return err
	}
	res, err := s.Run()
	if err != nil {
		return err
	}

	fmt.Printf("simulation %s finished in %v\n", res.Name, res.Elapsed)
	fmt.Printf("  total charged:   %.2f kWh\n", res.TotalChargedKWh)
	fmt.Printf("  imbalance:       %.2f kW\n", res.ImbalanceKW)
	fmt.Printf("  account balance: %.2f EUR\n", res.BalanceEUR)
	fmt.Printf("  bids:            %d placed, %d accepted\n", res.Bids, res.AcceptedBids)
	if res.RefusedRentals > 0 {
		fmt.Printf("  refused rentals: %d\n", res.RefusedRentals)
	}
	if res.ShortfallKWh > 0 {
		fmt.Printf("  rental shortfall: %.2f kWh\n", res.ShortfallKWh)
	}
	return nil
}

func buildSink(cfg config.MetricsConfig, logg logger.Logger) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
		go func() {
			if err := metrics.StartPromServer(cfg.PrometheusPort); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, logg))
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return coremetrics.NewMultiSink(sinks...), nil
	}
}

func openLogFile(name string) (io.WriteCloser, error) {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.Create(filepath.Join("logs", name+".log"))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return f, nil
}
