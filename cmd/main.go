package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "raildelay",
	Short:        "Darwin realtime delay prediction tool",
	Long:         "Runs the realtime Darwin prediction pipeline and the HSP enrichment batch job",
	SilenceUsage: true,
}

var (
	configPath string
	stationCSV string
	dbPath     string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config YAML (darwin/hsp credentials and topic settings)")
	rootCmd.PersistentFlags().StringVarP(&stationCSV, "station-csv", "", "tiploc.csv", "Path to the TIPLOC/CRS station reference CSV")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "", "realtime_predictions.db", "Path to the SQLite database")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(realtimeCmd)
	rootCmd.AddCommand(enrichCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
}

func openStationFile() (*os.File, error) {
	f, err := os.Open(stationCSV)
	if err != nil {
		return nil, fmt.Errorf("opening station reference csv %s: %w", stationCSV, err)
	}
	return f, nil
}
