// Package export materializes per-sample rows as CSV or JSON, with
// derived indices and condition-flag columns, for SampleCollections.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
	"github.com/skyrisk/weatherrisk-api/internal/risk/thresholds"
)

// Row is one exported sample, with missing indices rendered as nil/empty
// rather than a numeric sentinel.
type Row struct {
	TimestampLocal string   `json:"timestamp_local"`
	Year           int      `json:"year"`
	DOY            int      `json:"doy"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	TempC          float64  `json:"temp_c"`
	RH             float64  `json:"rh"`
	WindMS         float64  `json:"wind_ms"`
	HeatIndexC     *float64 `json:"heat_index_c"`
	WindChillC     *float64 `json:"wind_chill_c"`
	PrecipMMPerH   float64  `json:"precip_mm_per_h"`
	PrecipSource   string   `json:"precip_source"`
	VeryHot        bool     `json:"very_hot"`
	VeryCold       bool     `json:"very_cold"`
	VeryWindy      bool     `json:"very_windy"`
	VeryWet        bool     `json:"very_wet"`
	AnyAdverse     bool     `json:"any_adverse"`
}

// csvHeader is the deterministic column order for CSV export.
var csvHeader = []string{
	"timestamp_local", "year", "doy", "lat", "lon",
	"temp_c", "rh", "wind_ms", "heat_index_c", "wind_chill_c",
	"precip_mm_per_h", "precip_source",
	"very_hot", "very_cold", "very_windy", "very_wet", "any_adverse",
}

// BuildRows constructs one Row per sample in the collection, flagging
// each sample with settings.
func BuildRows(collection model.SampleCollection, settings thresholds.Settings) []Row {
	rows := make([]Row, len(collection.Samples))
	for i, s := range collection.Samples {
		flags := thresholds.Flag(s, settings)
		rows[i] = Row{
			TimestampLocal: s.TSLocal.Format("2006-01-02T15:04:05"),
			Year:           s.Year,
			DOY:            s.DOY,
			Lat:            s.Lat,
			Lon:            s.Lon,
			TempC:          s.TempC,
			RH:             s.RH,
			WindMS:         s.WindMS,
			HeatIndexC:     s.HeatIndexC,
			WindChillC:     s.WindChillC,
			PrecipMMPerH:   s.HourlyPrecipRate(),
			PrecipSource:   string(s.PrecipSource),
			VeryHot:        flags.VeryHot,
			VeryCold:       flags.VeryCold,
			VeryWindy:      flags.VeryWindy,
			VeryWet:        flags.VeryWet,
			AnyAdverse:     flags.AnyFlagged(),
		}
	}
	return rows
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

// ToCSV writes rows as CSV with csvHeader as the first line, even when
// rows is empty.
func ToCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range rows {
		record := []string{
			r.TimestampLocal,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.DOY),
			strconv.FormatFloat(r.Lat, 'f', 6, 64),
			strconv.FormatFloat(r.Lon, 'f', 6, 64),
			strconv.FormatFloat(r.TempC, 'f', 2, 64),
			strconv.FormatFloat(r.RH, 'f', 2, 64),
			strconv.FormatFloat(r.WindMS, 'f', 2, 64),
			formatOptional(r.HeatIndexC),
			formatOptional(r.WindChillC),
			strconv.FormatFloat(r.PrecipMMPerH, 'f', 3, 64),
			r.PrecipSource,
			strconv.FormatBool(r.VeryHot),
			strconv.FormatBool(r.VeryCold),
			strconv.FormatBool(r.VeryWindy),
			strconv.FormatBool(r.VeryWet),
			strconv.FormatBool(r.AnyAdverse),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSON marshals rows as a pretty-printed JSON array.
func ToJSON(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	return json.MarshalIndent(rows, "", "  ")
}
