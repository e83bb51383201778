package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/railsignal/raildelay/enrich"
	"github.com/railsignal/raildelay/hsp"
	"github.com/railsignal/raildelay/internal/config"
	"github.com/railsignal/raildelay/route"
	"github.com/railsignal/raildelay/stationref"
	"github.com/railsignal/raildelay/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Backfill actual arrival times from HSP into saved predictions",
	RunE:  runEnrich,
}

var (
	enrichBeforeDate string
	enrichLimitRows  int
	enrichMaxRIDs    int
	enrichSleep      time.Duration
	enrichDryRun     bool
	enrichSchedule   string
)

func init() {
	enrichCmd.Flags().StringVarP(&enrichBeforeDate, "before-date", "", "", "Only enrich rows with ssd before this date (YYYY-MM-DD); defaults to today")
	enrichCmd.Flags().IntVarP(&enrichLimitRows, "limit-rows", "", 50000, "Max candidate rows to fetch")
	enrichCmd.Flags().IntVarP(&enrichMaxRIDs, "max-rids", "", 2000, "Max distinct RIDs to query HSP for in one run")
	enrichCmd.Flags().DurationVarP(&enrichSleep, "sleep", "", 0, "Delay between HSP calls")
	enrichCmd.Flags().BoolVarP(&enrichDryRun, "dry-run", "", false, "Count matches without writing them")
	enrichCmd.Flags().StringVarP(&enrichSchedule, "schedule", "", "", "Cron expression to run enrichment on a recurring schedule instead of once")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.Load(configPath, config.RequireHSP)
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

	location, err := time.LoadLocation("Europe/London")
	if err != nil {
		return err
	}

	db, err := store.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := hsp.NewClient(cfg.HSP.ServiceDetailsURL, cfg.HSP.Username, cfg.HSP.Password)
	worker := enrich.NewWorker(db, client, maps, location, log)

	beforeDate := enrichBeforeDate
	if beforeDate == "" {
		beforeDate = time.Now().In(location).Format("2006-01-02")
	}

	opts := enrich.Options{
		BeforeDate:  beforeDate,
		LimitRows:   enrichLimitRows,
		MaxRIDs:     enrichMaxRIDs,
		SleepPerRID: enrichSleep,
		DryRun:      enrichDryRun,
	}

	runOnce := func() {
		counters, err := worker.Run(context.Background(), opts)
		if err != nil {
			log.Error().Err(err).Msg("enrichment run failed")
			return
		}
		log.Info().
			Int("written", counters.Written).
			Int("skipped_no_hsp", counters.SkippedNoHSP).
			Int("skipped_no_match", counters.SkippedNoMatch).
			Int("skipped_no_times", counters.SkippedNoTimes).
			Msg("enrichment run complete")
	}

	if enrichSchedule == "" {
		runOnce()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(enrichSchedule, runOnce); err != nil {
		return err
	}
	log.Info().Str("schedule", enrichSchedule).Msg("running enrichment on a recurring schedule")
	c.Run()
	return nil
}
