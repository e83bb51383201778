package darwin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/railsignal/raildelay/model"
)

func segWithTimes(ssd, plannedDep, plannedArrSecond string) model.Segment {
	return model.Segment{
		SSD:              ssd,
		PlannedDep:       model.NewClock(plannedDep),
		PlannedArrSecond: model.NewClock(plannedArrSecond),
	}
}

func TestFilterInProgressKeepsStartedNotFinished(t *testing.T) {
	now := time.Date(2025, 4, 10, 9, 1, 0, 0, london)

	seg := segWithTimes("2025-04-10", "09:00", "09:15")
	kept := FilterInProgress([]model.Segment{seg}, now, london)
	assert.Len(t, kept, 1)
}

func TestFilterInProgressDropsNotYetStarted(t *testing.T) {
	now := time.Date(2025, 4, 10, 8, 0, 0, 0, london)

	seg := segWithTimes("2025-04-10", "09:00", "09:15")
	kept := FilterInProgress([]model.Segment{seg}, now, london)
	assert.Empty(t, kept)
}

func TestFilterInProgressDropsAlreadyFinished(t *testing.T) {
	now := time.Date(2025, 4, 10, 9, 20, 0, 0, london)

	seg := segWithTimes("2025-04-10", "09:00", "09:15")
	kept := FilterInProgress([]model.Segment{seg}, now, london)
	assert.Empty(t, kept)
}

func TestFilterInProgressRespectsGracePeriods(t *testing.T) {
	// 4 minutes before departure is within the 5-minute grace period.
	now := time.Date(2025, 4, 10, 8, 56, 0, 0, london)
	seg := segWithTimes("2025-04-10", "09:00", "09:15")
	assert.Len(t, FilterInProgress([]model.Segment{seg}, now, london), 1)

	// 1 minute after planned arrival is within the 2-minute grace period.
	now = time.Date(2025, 4, 10, 9, 16, 0, 0, london)
	assert.Len(t, FilterInProgress([]model.Segment{seg}, now, london), 1)
}

func TestFilterNearDeparture(t *testing.T) {
	now := time.Date(2025, 4, 10, 8, 45, 0, 0, london)
	seg := segWithTimes("2025-04-10", "09:00", "09:15")

	// 15 min before departure, within [-30, +180].
	assert.Len(t, FilterNearDeparture([]model.Segment{seg}, now, london), 1)

	farNow := time.Date(2025, 4, 10, 4, 0, 0, 0, london)
	assert.Empty(t, FilterNearDeparture([]model.Segment{seg}, farNow, london))
}
