package route

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railsignal/raildelay/stationref"
)

func TestBuildMaps(t *testing.T) {
	csv := `NAME,TIPLOC,TIPLOC2,CRS
Weymouth,WEYMTH,WEYMTH,WEY
Upwey,UPWEY,UPWEY,UPW
Waterloo,WATRLOO,WATRLMN,WAT
`
	table, err := stationref.Load(strings.NewReader(csv))
	require.NoError(t, err)

	m := BuildMaps(table)

	assert.Equal(t, "WEYMTH", m.Origin)
	assert.Equal(t, "WATRLMN", m.Destination)
	assert.True(t, m.IsTrackedPair("WEYMTH", "UPWEY"))
	assert.False(t, m.IsTrackedPair("UPWEY", "WEYMTH"))
	assert.Equal(t, "WEYMTH", m.CRSToTIPLOC2["WEY"])
	assert.Equal(t, "WATRLMN", m.CRSToTIPLOC2["WAT"])
}

func TestBuildMapsFirstOccurrenceWinsOnCRSCollision(t *testing.T) {
	// Two route stations sharing one CRS: the earlier one in
	// journey order should win the canonical mapping.
	csv := `NAME,TIPLOC,TIPLOC2,CRS
Weymouth,WEYMTH,WEYMTH,DUP
Upwey,UPWEY,UPWEY,DUP
`
	table, err := stationref.Load(strings.NewReader(csv))
	require.NoError(t, err)

	m := BuildMaps(table)
	assert.Equal(t, "WEYMTH", m.CRSToTIPLOC2["DUP"])
}
