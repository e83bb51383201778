// Package darwin decodes Darwin PushPort frame bodies and extracts
// per-segment records from the decoded forecasts and schedules.
package darwin

import (
	"bytes"
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/railsignal/raildelay/model"
)

const (
	nsV16      = "http://www.thalesgroup.com/rtti/PushPort/v16"
	nsForecast = "http://www.thalesgroup.com/rtti/PushPort/Forecasts/v3"
	nsSchedule = "http://www.thalesgroup.com/rtti/PushPort/Schedules/v3"
)

// DecompressBody accepts a Darwin frame body that may be raw zlib or
// gzip-wrapped, auto-detecting by magic bytes the way
// zlib.MAX_WBITS|32 does on the Python side.
func DecompressBody(body []byte) ([]byte, error) {
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	r, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// DecodeMessage decompresses and parses a frame body into forecast
// locations and schedule endpoints. A decode/parse failure is
// returned to the caller, who is expected to log and drop the frame
// per spec.md §4.C — there is no retry here.
func DecodeMessage(body []byte) ([]model.ForecastLocation, []model.ScheduleEndpoint, error) {
	xmlBytes, err := DecompressBody(body)
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing frame: %w", err)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(xmlBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing xml: %w", err)
	}

	forecasts := extractForecasts(doc)
	schedules := extractSchedules(doc)
	return forecasts, schedules, nil
}

func localNameIs(n *xmlquery.Node, ns, name string) bool {
	return n.Type == xmlquery.ElementNode && n.Data == name && n.NamespaceURI == ns
}

func forEachChild(n *xmlquery.Node, fn func(*xmlquery.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fn(c)
	}
}

func forEachDescendant(n *xmlquery.Node, ns, name string, fn func(*xmlquery.Node)) {
	forEachChild(n, func(c *xmlquery.Node) {
		if localNameIs(c, ns, name) {
			fn(c)
		}
		forEachDescendant(c, ns, name, fn)
	})
}

// mergeAttrs applies Location/OR/DT element attributes and non-empty
// subelement text onto a mutable key/value map, mirroring
// parse_forecasts.extract_attr / parse_schedules._parse_sched_location:
// a subelement with text becomes `tag -> text`; an empty subelement
// becomes `state -> tag` plus `state_<k> -> v` for its own attributes.
func mergeAttrs(loc *xmlquery.Node, dst map[string]string) {
	for _, a := range loc.Attr {
		dst[a.Name.Local] = a.Value
	}

	forEachChild(loc, func(sub *xmlquery.Node) {
		if sub.Type != xmlquery.ElementNode {
			return
		}
		text := sub.InnerText()
		if trimmedNonEmpty(text) {
			dst[sub.Data] = text
			return
		}
		dst["state"] = sub.Data
		for _, a := range sub.Attr {
			dst["state_"+a.Name.Local] = a.Value
		}
	})
}

func trimmedNonEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

func extractForecasts(doc *xmlquery.Node) []model.ForecastLocation {
	var out []model.ForecastLocation

	forEachDescendant(doc, nsV16, "TS", func(ts *xmlquery.Node) {
		base := map[string]string{
			"updateOrigin": ts.SelectAttr("updateOrigin"),
			"rid":          ts.SelectAttr("rid"),
			"uid":          ts.SelectAttr("uid"),
			"ssd":          ts.SelectAttr("ssd"),
		}

		forEachDescendant(ts, nsForecast, "Location", func(loc *xmlquery.Node) {
			fields := map[string]string{}
			for k, v := range base {
				fields[k] = v
			}
			mergeAttrs(loc, fields)
			out = append(out, forecastFromFields(fields))
		})
	})

	return out
}

func extractSchedules(doc *xmlquery.Node) []model.ScheduleEndpoint {
	var out []model.ScheduleEndpoint

	forEachDescendant(doc, nsV16, "schedule", func(sched *xmlquery.Node) {
		rid := sched.SelectAttr("rid")

		forEachDescendant(sched, nsSchedule, "OR", func(loc *xmlquery.Node) {
			fields := map[string]string{"rid": rid}
			mergeAttrs(loc, fields)
			out = append(out, model.ScheduleEndpoint{RID: rid, TPL: fields["tpl"], Type: model.EndpointOrigin})
		})

		forEachDescendant(sched, nsSchedule, "DT", func(loc *xmlquery.Node) {
			fields := map[string]string{"rid": rid}
			mergeAttrs(loc, fields)
			out = append(out, model.ScheduleEndpoint{RID: rid, TPL: fields["tpl"], Type: model.EndpointDestination})
		})
	})

	return out
}

func clk(fields map[string]string, key string) model.Clock {
	return model.NewClock(fields[key])
}

func forecastFromFields(f map[string]string) model.ForecastLocation {
	return model.ForecastLocation{
		RID:          f["rid"],
		UID:          f["uid"],
		SSD:          f["ssd"],
		UpdateOrigin: f["updateOrigin"],
		TPL:          f["tpl"],

		PTA: clk(f, "pta"),
		PTD: clk(f, "ptd"),
		WTA: clk(f, "wta"),
		WTD: clk(f, "wtd"),
		ETA: clk(f, "eta"),
		ETD: clk(f, "etd"),
		ATA: clk(f, "ata"),
		ATD: clk(f, "atd"),

		ArrAT:  clk(f, "arr_at"),
		ArrET:  clk(f, "arr_et"),
		ArrWET: clk(f, "arr_wet"),
		DepAT:  clk(f, "dep_at"),
		DepET:  clk(f, "dep_et"),

		State: f["state"],
	}
}
