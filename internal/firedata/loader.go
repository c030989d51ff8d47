// Package firedata reads the partitioned on-disk dataset of
// air-quality records. The dataset is laid out as one directory per
// YYYYMMDD date key, each holding any number of CSV files:
//
//	<data_path>/
//	    20200810/
//	        sensors-west.csv
//	        sensors-east.csv
//	    20200811/
//	        ...
//
// A Source produces a finite, non-restartable slice of records for a
// set of date keys under AND-composed filters. Partitions are disjoint
// across processes, so a record is only ever produced by the one node
// that owns its date.
package firedata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dreamware/firequery/internal/wire"
)

// Filter is the AND-composed predicate applied while loading. Zero
// values mean "no constraint" for the pollutant; the bounding box is
// always applied, so callers wanting everything pass the full box.
type Filter struct {
	Pollutant    string
	LatitudeMin  float64
	LatitudeMax  float64
	LongitudeMin float64
	LongitudeMax float64
}

// FullBox is the no-op bounding box.
var FullBox = Filter{
	LatitudeMin:  -90,
	LatitudeMax:  90,
	LongitudeMin: -180,
	LongitudeMax: 180,
}

// FilterFromQuery builds the load filter for a query.
func FilterFromQuery(q *wire.QueryRequest) Filter {
	return Filter{
		Pollutant:    q.PollutantType,
		LatitudeMin:  q.LatitudeMin,
		LatitudeMax:  q.LatitudeMax,
		LongitudeMin: q.LongitudeMin,
		LongitudeMax: q.LongitudeMax,
	}
}

// LoadStats accounts for one Load call.
type LoadStats struct {
	RowsScanned int // CSV rows read across all files
	RowsSkipped int // malformed rows dropped with a warning
	Matched     int // records that passed every filter
}

// Source loads records from a data path. It is stateless between
// calls and safe for concurrent use.
type Source struct {
	dataPath string
}

// NewSource opens a data source over the given path. A missing path is
// a startup error; missing individual dates later are not.
func NewSource(dataPath string) (*Source, error) {
	info, err := os.Stat(dataPath)
	if err != nil {
		return nil, fmt.Errorf("data path %s: %w", dataPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", dataPath)
	}
	return &Source{dataPath: dataPath}, nil
}

// Load reads every record for the given date keys that passes the
// filter. When maxRecords > 0 the result is truncated to that length
// and reading stops early. Dates missing on disk are skipped with a
// warning; malformed rows are skipped with a warning; neither aborts
// the load.
func (s *Source) Load(dates []string, f Filter, maxRecords int32) ([]wire.Record, LoadStats) {
	var (
		out   []wire.Record
		stats LoadStats
	)

	for _, date := range dates {
		dir := filepath.Join(s.dataPath, date)
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Printf("warning: date partition missing: %s", dir)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
				continue
			}
			s.loadCSV(filepath.Join(dir, entry.Name()), f, maxRecords, &out, &stats)
			if maxRecords > 0 && int32(len(out)) >= maxRecords {
				return out[:maxRecords], stats
			}
		}
	}
	return out, stats
}

// AvailableDates lists the date directories present on disk, sorted.
func (s *Source) AvailableDates() ([]string, error) {
	entries, err := os.ReadDir(s.dataPath)
	if err != nil {
		return nil, fmt.Errorf("list dates under %s: %w", s.dataPath, err)
	}
	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			dates = append(dates, entry.Name())
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Source) loadCSV(path string, f Filter, maxRecords int32, out *[]wire.Record, stats *LoadStats) {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("warning: failed to open CSV %s: %v", path, err)
		return
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // row width is validated per row below

	for {
		if maxRecords > 0 && int32(len(*out)) >= maxRecords {
			return
		}
		fields, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			stats.RowsSkipped++
			log.Printf("warning: bad CSV row in %s: %v", path, err)
			continue
		}
		stats.RowsScanned++

		rec, err := parseRow(fields)
		if err != nil {
			stats.RowsSkipped++
			log.Printf("warning: failed to parse row in %s: %v", path, err)
			continue
		}

		if f.Pollutant != "" && rec.Pollutant != f.Pollutant {
			continue
		}
		if rec.Latitude < f.LatitudeMin || rec.Latitude > f.LatitudeMax {
			continue
		}
		if rec.Longitude < f.LongitudeMin || rec.Longitude > f.LongitudeMax {
			continue
		}

		stats.Matched++
		*out = append(*out, rec)
	}
}

// parseRow maps one CSV row onto a Record. Column order:
// lat, lon, timestamp, pollutant, concentration, unit, raw, aqi,
// category, site, agency, id, full_id.
func parseRow(fields []string) (wire.Record, error) {
	var rec wire.Record
	if len(fields) < 13 {
		return rec, fmt.Errorf("row has %d fields, want 13", len(fields))
	}

	var err error
	if rec.Latitude, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return rec, fmt.Errorf("latitude: %w", err)
	}
	if rec.Longitude, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return rec, fmt.Errorf("longitude: %w", err)
	}
	rec.Timestamp = fields[2]
	rec.Pollutant = fields[3]
	if rec.Concentration, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return rec, fmt.Errorf("concentration: %w", err)
	}
	rec.Unit = fields[5]
	if rec.RawConcentration, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return rec, fmt.Errorf("raw concentration: %w", err)
	}
	aqi, err := strconv.Atoi(fields[7])
	if err != nil {
		return rec, fmt.Errorf("aqi: %w", err)
	}
	rec.AQI = int32(aqi)
	cat, err := strconv.Atoi(fields[8])
	if err != nil {
		return rec, fmt.Errorf("aqi category: %w", err)
	}
	rec.AQICategory = int32(cat)
	rec.SiteName = fields[9]
	rec.Agency = fields[10]
	rec.SiteID = fields[11]
	rec.FullSiteID = fields[12]
	return rec, nil
}

// IntersectDates returns the owned dates that fall inside the query's
// [start, end] range, compared lexicographically on the YYYYMMDD keys.
// Configured order is preserved.
func IntersectDates(owned []string, start, end string) []string {
	var out []string
	for _, d := range owned {
		if d >= start && d <= end {
			out = append(out, d)
		}
	}
	return out
}
