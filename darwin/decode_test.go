package darwin

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Pport xmlns="http://www.thalesgroup.com/rtti/PushPort/v16">
  <uR>
    <TS rid="X1" uid="U1" ssd="2025-04-10" updateOrigin="TD">
      <Location tpl="SOTON" ptd="09:00" etd="09:03" xmlns="http://www.thalesgroup.com/rtti/PushPort/Forecasts/v3">
        <plat>4</plat>
      </Location>
      <Location tpl="SOTPKWY" pta="09:15" xmlns="http://www.thalesgroup.com/rtti/PushPort/Forecasts/v3">
        <cancelReason reason="X"/>
      </Location>
    </TS>
  </uR>
  <schedule rid="X1" uid="U1" ssd="2025-04-10">
    <OR tpl="WEYMTH" xmlns="http://www.thalesgroup.com/rtti/PushPort/Schedules/v3"/>
    <DT tpl="WATRLMN" xmlns="http://www.thalesgroup.com/rtti/PushPort/Schedules/v3"/>
  </schedule>
</Pport>`

func compressZlib(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeMessage(t *testing.T) {
	body := compressZlib(t, sampleXML)

	forecasts, schedules, err := DecodeMessage(body)
	require.NoError(t, err)

	require.Len(t, forecasts, 2)
	assert.Equal(t, "X1", forecasts[0].RID)
	assert.Equal(t, "2025-04-10", forecasts[0].SSD)
	assert.Equal(t, "SOTON", forecasts[0].TPL)
	assert.Equal(t, "09:00", forecasts[0].PTD.Raw)
	assert.Equal(t, "09:03", forecasts[0].ETD.Raw)

	assert.Equal(t, "SOTPKWY", forecasts[1].TPL)
	assert.Equal(t, "09:15", forecasts[1].PTA.Raw)
	assert.Equal(t, "cancelReason", forecasts[1].State)

	require.Len(t, schedules, 2)
	assert.Equal(t, "WEYMTH", schedules[0].TPL)
	assert.Equal(t, "WATRLMN", schedules[1].TPL)
}

func TestDecodeMessageBadFrame(t *testing.T) {
	_, _, err := DecodeMessage([]byte("not compressed"))
	assert.Error(t, err)
}
