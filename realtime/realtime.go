// Package realtime wires decode, direction/in-progress filtering,
// feature building, prediction, caching, and durable storage into the
// per-message pipeline driven by the STOMP feed.
package realtime

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/railsignal/raildelay/cache"
	"github.com/railsignal/raildelay/darwin"
	"github.com/railsignal/raildelay/feature"
	"github.com/railsignal/raildelay/model"
	"github.com/railsignal/raildelay/predict"
	"github.com/railsignal/raildelay/route"
	"github.com/railsignal/raildelay/store"
)

// Config bundles the orchestrator's dependencies and tunables.
type Config struct {
	Maps     route.Maps
	Location *time.Location
	Print    bool
}

// Orchestrator is the realtime pipeline: one instance handles every
// decoded Darwin message for the life of the STOMP subscription.
type Orchestrator struct {
	cfg      Config
	cache    *cache.Recent
	writer   *store.Writer
	builder  feature.Builder
	ensemble *predict.Ensemble
	log      zerolog.Logger
}

func New(cfg Config, recentCache *cache.Recent, writer *store.Writer, builder feature.Builder, ensemble *predict.Ensemble, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, cache: recentCache, writer: writer, builder: builder, ensemble: ensemble, log: log}
}

// HandleMessage decodes one compressed Darwin frame body and runs it
// through the full per-segment pipeline, at time now.
func (o *Orchestrator) HandleMessage(body []byte, now time.Time) {
	forecasts, schedules, err := darwin.DecodeMessage(body)
	if err != nil {
		o.log.Warn().Err(err).Msg("failed to decode darwin message")
		return
	}

	segs := darwin.ExtractSegments(forecasts, schedules, o.cfg.Maps, o.cfg.Location, true)
	if len(segs) == 0 {
		return
	}

	for i := range segs {
		segs[i].PlannedArrSecond = plannedArrSecond(segs[i])
	}

	segs = darwin.FilterInProgress(segs, now, o.cfg.Location)
	if len(segs) == 0 {
		return
	}

	for _, seg := range segs {
		o.handleSegment(seg, now)
	}
}

func plannedArrSecond(seg model.Segment) model.Clock {
	if seg.LocSecond == nil {
		return model.Clock{}
	}
	if seg.LocSecond.PTA.Present {
		return seg.LocSecond.PTA
	}
	return seg.LocSecond.WTA
}

func (o *Orchestrator) handleSegment(seg model.Segment, now time.Time) {
	row, ok := o.builder.Build(seg)
	if !ok {
		return
	}

	pred, ok, err := o.ensemble.Predict(seg.First, seg.Second, row)
	if err != nil {
		o.log.Warn().Err(err).Str("rid", seg.RID).Msg("prediction failed")
		return
	}
	if !ok {
		return
	}

	segID := seg.ID()
	prev, hadPrev := o.cache.Get(segID)

	depTime := seg.DepTimeForPrediction.Raw
	o.cache.Touch(segID, depTime, seg.DepTimeKind, seg.HasActualDep)

	shouldInsertAll := !hadPrev || depTime != prev.LastDepTime || seg.DepTimeKind != prev.LastKind
	shouldInsertActual := seg.HasActualDep && !prev.ActualSaved

	rec := model.PredictionRecord{
		CreatedAtUTC:       now.UTC(),
		RID:                seg.RID,
		SSD:                seg.SSD,
		First:              seg.First,
		Second:             seg.Second,
		PlannedDep:         seg.PlannedDep.Raw,
		DepTime:            depTime,
		DepTimeKind:        seg.DepTimeKind,
		HasActualDep:       seg.HasActualDep,
		ActualDepConfirmed: seg.ActualDepConfirmed.Raw,
		DepartureDelay:     row.DepartureDelay,
		DwellDelay:         row.DwellDelay,
		Peak:               row.Peak,
		DayOfWeek:          row.DayOfWeek,
		DayOfMonth:         row.DayOfMonth,
		HourOfDay:          row.HourOfDay,
		Weekend:            row.Weekend,
		Season:             row.Season,
		Month:              row.Month,
		Holiday:            row.Holiday,
		PredictedDelay:     &pred,
	}

	if shouldInsertAll {
		o.writer.EnqueuePredictionAll(rec)
	}

	if shouldInsertActual {
		if o.writer.EnqueuePredictionActual(rec) {
			o.cache.MarkActualSaved(segID)
		}
	}

	if o.cfg.Print {
		o.printLine(rec, now)
	}
}

func (o *Orchestrator) printLine(rec model.PredictionRecord, now time.Time) {
	flag := "EST"
	if rec.HasActualDep {
		flag = "ACTUAL"
	}
	fmt.Printf(
		"%s | %s | %s %s->%s planned_dep=%s dep_time=%s dep_delay=%.1f dwell=%.1f pred=%.2f | cache=%d\n",
		now.Format("2006-01-02 15:04:05"), flag, rec.RID, rec.First, rec.Second,
		rec.PlannedDep, rec.DepTime, rec.DepartureDelay, rec.DwellDelay, *rec.PredictedDelay, o.cache.Len(),
	)
}
