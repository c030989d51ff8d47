package firedata

import (
	"os"
	"path/filepath"
	"testing"
)

// row builds one well-formed CSV line.
func row(lat, lon, pollutant, site string) string {
	return lat + "," + lon + ",2020-08-10T01:00," + pollutant + ",12.5,UG/M3,12.1,40,1," + site + ",Agency,001,840001\n"
}

func writeCSV(t *testing.T, root, date, name, body string) {
	t.Helper()
	dir := filepath.Join(root, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestSource(t *testing.T, root string) *Source {
	t.Helper()
	s, err := NewSource(root)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return s
}

func TestNewSource(t *testing.T) {
	if _, err := NewSource(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing data path")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads records across dates in order", func(t *testing.T) {
		root := t.TempDir()
		writeCSV(t, root, "20200810", "a.csv", row("37.0", "-121.0", "PM2.5", "First")+row("38.0", "-122.0", "OZONE", "Second"))
		writeCSV(t, root, "20200811", "b.csv", row("39.0", "-123.0", "PM2.5", "Third"))
		s := newTestSource(t, root)

		recs, stats := s.Load([]string{"20200810", "20200811"}, FullBox, -1)
		if len(recs) != 3 {
			t.Fatalf("got %d records, want 3", len(recs))
		}
		if recs[0].SiteName != "First" || recs[2].SiteName != "Third" {
			t.Errorf("order not preserved: %v", recs)
		}
		if stats.Matched != 3 || stats.RowsScanned != 3 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("missing date is skipped not fatal", func(t *testing.T) {
		root := t.TempDir()
		writeCSV(t, root, "20200810", "a.csv", row("37.0", "-121.0", "PM2.5", "Only"))
		s := newTestSource(t, root)

		recs, _ := s.Load([]string{"20200809", "20200810", "20200812"}, FullBox, -1)
		if len(recs) != 1 {
			t.Fatalf("got %d records, want 1", len(recs))
		}
	})

	t.Run("malformed rows are skipped with stats", func(t *testing.T) {
		root := t.TempDir()
		body := row("37.0", "-121.0", "PM2.5", "Good") +
			"not,enough,fields\n" +
			row("not-a-float", "-121.0", "PM2.5", "BadLat") +
			row("38.0", "-122.0", "PM2.5", "AlsoGood")
		writeCSV(t, root, "20200810", "a.csv", body)
		s := newTestSource(t, root)

		recs, stats := s.Load([]string{"20200810"}, FullBox, -1)
		if len(recs) != 2 {
			t.Fatalf("got %d records, want 2", len(recs))
		}
		if stats.RowsSkipped != 2 {
			t.Errorf("RowsSkipped = %d, want 2", stats.RowsSkipped)
		}
	})

	t.Run("filters are AND composed", func(t *testing.T) {
		root := t.TempDir()
		body := row("37.0", "-121.0", "PM2.5", "InBoxMatch") +
			row("37.0", "-121.0", "OZONE", "InBoxWrongPollutant") +
			row("50.0", "-121.0", "PM2.5", "OutOfBox")
		writeCSV(t, root, "20200810", "a.csv", body)
		s := newTestSource(t, root)

		f := Filter{Pollutant: "PM2.5", LatitudeMin: 30, LatitudeMax: 40, LongitudeMin: -130, LongitudeMax: -110}
		recs, _ := s.Load([]string{"20200810"}, f, -1)
		if len(recs) != 1 || recs[0].SiteName != "InBoxMatch" {
			t.Fatalf("got %v", recs)
		}
	})

	t.Run("max records truncates", func(t *testing.T) {
		root := t.TempDir()
		var body string
		for i := 0; i < 20; i++ {
			body += row("37.0", "-121.0", "PM2.5", "Site")
		}
		writeCSV(t, root, "20200810", "a.csv", body)
		s := newTestSource(t, root)

		recs, _ := s.Load([]string{"20200810"}, FullBox, 7)
		if len(recs) != 7 {
			t.Fatalf("got %d records, want 7", len(recs))
		}
	})

	t.Run("quoted fields parse", func(t *testing.T) {
		root := t.TempDir()
		body := `37.0,-121.0,2020-08-10T01:00,PM2.5,12.5,UG/M3,12.1,40,1,"Site, with comma",Agency,001,840001` + "\n"
		writeCSV(t, root, "20200810", "a.csv", body)
		s := newTestSource(t, root)

		recs, _ := s.Load([]string{"20200810"}, FullBox, -1)
		if len(recs) != 1 || recs[0].SiteName != "Site, with comma" {
			t.Fatalf("got %v", recs)
		}
	})
}

func TestAvailableDates(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, root, "20200811", "a.csv", "")
	writeCSV(t, root, "20200810", "a.csv", "")
	s := newTestSource(t, root)

	dates, err := s.AvailableDates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 || dates[0] != "20200810" || dates[1] != "20200811" {
		t.Fatalf("dates = %v", dates)
	}
}

func TestIntersectDates(t *testing.T) {
	owned := []string{"20200810", "20200812", "20200815"}

	tests := []struct {
		start, end string
		want       int
	}{
		{"20200810", "20200815", 3},
		{"20200811", "20200814", 1},
		{"20200816", "20200820", 0},
		{"20200812", "20200812", 1},
	}
	for _, tc := range tests {
		if got := IntersectDates(owned, tc.start, tc.end); len(got) != tc.want {
			t.Errorf("IntersectDates(%s..%s) = %v, want %d dates", tc.start, tc.end, got, tc.want)
		}
	}
}
