package main

import (
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/spf13/cobra"

	"github.com/railsignal/raildelay/cache"
	"github.com/railsignal/raildelay/feature"
	"github.com/railsignal/raildelay/internal/config"
	"github.com/railsignal/raildelay/predict"
	"github.com/railsignal/raildelay/realtime"
	"github.com/railsignal/raildelay/route"
	"github.com/railsignal/raildelay/stationref"
	"github.com/railsignal/raildelay/store"
	"github.com/railsignal/raildelay/transport"
)

var realtimeCmd = &cobra.Command{
	Use:   "realtime",
	Short: "Consume the Darwin feed and write live delay predictions",
	RunE:  runRealtime,
}

var (
	realtimeMinutes     float64
	realtimePrint       bool
	realtimeCacheSize   int
	realtimeWeightsFile string
	realtimeArtifactDir string
)

func init() {
	realtimeCmd.Flags().Float64VarP(&realtimeMinutes, "minutes", "", 5, "How long to run, in minutes. Use -1 for unlimited.")
	realtimeCmd.Flags().BoolVarP(&realtimePrint, "print", "", true, "Print predictions to the terminal")
	realtimeCmd.Flags().IntVarP(&realtimeCacheSize, "cache-size", "", 500, "Max number of recent segment keys kept in memory")
	realtimeCmd.Flags().StringVarP(&realtimeWeightsFile, "weights", "", "model_weights.json", "Ensemble weights JSON file")
	realtimeCmd.Flags().StringVarP(&realtimeArtifactDir, "artifact-dir", "", "weights", "Directory holding per-segment model artifact JSON files")
}

func ackModeFromString(s string) stomp.AckMode {
	switch strings.ToLower(s) {
	case "client":
		return stomp.AckClient
	case "client-individual":
		return stomp.AckClientIndividual
	default:
		return stomp.AckAuto
	}
}

func runRealtime(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.Load(configPath, config.RequireDarwin)
	if err != nil {
		return err
	}

	stationFile, err := openStationFile()
	if err != nil {
		return err
	}
	defer stationFile.Close()

	table, err := stationref.Load(stationFile)
	if err != nil {
		return err
	}
	maps := route.BuildMaps(table)

	ensemble, err := predict.LoadEnsemble(realtimeWeightsFile, realtimeArtifactDir)
	if err != nil {
		return err
	}
	defer ensemble.Close()

	writer, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	location, err := time.LoadLocation("Europe/London")
	if err != nil {
		return err
	}

	recent := cache.New(realtimeCacheSize)
	builder := feature.NewBuilder(feature.NewCalendar(), location)

	orchestratorCfg := realtime.Config{Maps: maps, Location: location, Print: realtimePrint}
	orchestrator := realtime.New(orchestratorCfg, recent, writer, builder, ensemble, log)

	listener := transport.NewStompListener(transport.Config{
		Host:           cfg.Darwin.TopicHost,
		Port:           cfg.Darwin.TopicPort,
		Topic:          cfg.Darwin.TopicName,
		Username:       cfg.Darwin.TopicUsername,
		Password:       cfg.Darwin.TopicPassword,
		HeartBeat:      cfg.Darwin.HeartBeat,
		ReconnectDelay: cfg.Darwin.ReconnectDelay,
		SubscriptionID: cfg.Darwin.SubscriptionID,
		AckMode:        ackModeFromString(cfg.Darwin.AckMode),
	}, log)

	stop := make(chan struct{})
	if realtimeMinutes >= 0 {
		go func() {
			time.Sleep(time.Duration(realtimeMinutes * float64(time.Minute)))
			close(stop)
		}()
	}

	log.Info().Float64("minutes", realtimeMinutes).Str("db", dbPath).Msg("starting realtime pipeline")

	handle := func(body []byte) {
		orchestrator.HandleMessage(body, time.Now().In(location))
	}

	return listener.Run(stop, handle)
}
