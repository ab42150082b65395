package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"plumsim/internal/models"
)

func tempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func bar(d int, close float64) models.Bar {
	return models.Bar{
		Date:   time.Date(2024, time.April, d, 0, 0, 0, 0, time.UTC),
		Open:   close - 0.5,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
	}
}

func TestSaveAndGetBars(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	in := []models.Bar{bar(1, 10), bar(2, 11), bar(3, 12)}
	if err := s.SaveBars(ctx, "TEST", PeriodDaily, in); err != nil {
		t.Fatalf("SaveBars: %v", err)
	}

	out, err := s.GetBars(ctx, "TEST", PeriodDaily, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("bars = %d, want 3", len(out))
	}
	for i := range in {
		if !out[i].Date.Equal(in[i].Date) || out[i].Close != in[i].Close {
			t.Errorf("bar %d = %+v, want %+v", i, out[i], in[i])
		}
	}

	// Bounded query.
	out, err = s.GetBars(ctx, "TEST", PeriodDaily, bar(2, 0).Date, time.Time{})
	if err != nil {
		t.Fatalf("GetBars bounded: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("bounded bars = %d, want 2", len(out))
	}

	// Upsert is idempotent.
	if err := s.SaveBars(ctx, "TEST", PeriodDaily, in); err != nil {
		t.Fatalf("re-SaveBars: %v", err)
	}
	out, _ = s.GetBars(ctx, "TEST", PeriodDaily, time.Time{}, time.Time{})
	if len(out) != 3 {
		t.Errorf("bars after upsert = %d, want 3", len(out))
	}
}

func TestGetFreshness(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	latest, err := s.GetFreshness(ctx, "TEST", PeriodDaily)
	if err != nil {
		t.Fatalf("GetFreshness: %v", err)
	}
	if !latest.IsZero() {
		t.Errorf("freshness of empty store = %v, want zero", latest)
	}

	if err := s.SaveBars(ctx, "TEST", PeriodDaily, []models.Bar{bar(1, 10), bar(5, 11)}); err != nil {
		t.Fatalf("SaveBars: %v", err)
	}
	latest, err = s.GetFreshness(ctx, "TEST", PeriodDaily)
	if err != nil {
		t.Fatalf("GetFreshness: %v", err)
	}
	if !latest.Equal(bar(5, 0).Date) {
		t.Errorf("freshness = %v, want %v", latest, bar(5, 0).Date)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestReadDailyCSV(t *testing.T) {
	dir := t.TempDir()
	path := DailyPath(dir, "test")
	writeFile(t, path, "date,open,high,low,close,volume\n"+
		"2024-04-02,10.5,11,10,10.8,2000\n"+
		"2024-04-01,10,10.6,9.8,10.4,1500\n")

	bars, err := ReadDailyCSV(path)
	if err != nil {
		t.Fatalf("ReadDailyCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	// Rows are re-sorted ascending.
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("bars not sorted ascending")
	}
	if bars[0].Close != 10.4 || bars[1].Volume != 2000 {
		t.Errorf("bars = %+v", bars)
	}
}

func TestReadIntradayCSV(t *testing.T) {
	dir := t.TempDir()
	path := IntradayPath(dir, "test")
	writeFile(t, path, "date,minute,open,high,low,close,volume\n"+
		"2024-04-01,09:15,10,10.2,9.9,10.1,100\n"+
		"2024-04-01,09:16,10.1,10.3,10,10.2,80\n")

	bars, err := ReadIntradayCSV(path)
	if err != nil {
		t.Fatalf("ReadIntradayCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	want := time.Date(2024, time.April, 1, 9, 15, 0, 0, time.UTC)
	if !bars[0].Date.Equal(want) {
		t.Errorf("timestamp = %v, want %v", bars[0].Date, want)
	}
}

func TestLoaderCSVFallbackAndCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, DailyPath(dir, "TEST"), "date,open,high,low,close,volume\n"+
		"2024-04-01,10,10.6,9.8,10.4,1500\n")

	s := tempStore(t)
	l := NewLoader(dir, s, zerolog.Nop())
	ctx := context.Background()

	series, err := l.Daily(ctx, "test")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if series.Ticker != "TEST" || series.Len() != 1 {
		t.Fatalf("series = %s, %d bars", series.Ticker, series.Len())
	}

	// The CSV read populated the cache; a reload hits the store even after
	// the file disappears.
	os.Remove(DailyPath(dir, "TEST"))
	series, err = l.Daily(ctx, "TEST")
	if err != nil {
		t.Fatalf("cached Daily: %v", err)
	}
	if series.Len() != 1 {
		t.Errorf("cached series = %d bars, want 1", series.Len())
	}
}

func TestLoaderMissingDaily(t *testing.T) {
	l := NewLoader(t.TempDir(), nil, zerolog.Nop())
	if _, err := l.Daily(context.Background(), "NOPE"); err == nil {
		t.Error("missing daily file accepted")
	}
}

func TestLoaderMissingIntradayIsNotError(t *testing.T) {
	l := NewLoader(t.TempDir(), nil, zerolog.Nop())
	series, err := l.Intraday(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("Intraday: %v", err)
	}
	if series != nil {
		t.Errorf("series = %v, want nil", series)
	}
}

// Property: saving bars and reading them back preserves dates, prices and
// volumes for any bar count and base price.
func TestProperty_BarRoundTrip(t *testing.T) {
	s := tempStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("save then get preserves bars", prop.ForAll(
		func(count int, base float64, tickerN int) bool {
			ctx := context.Background()
			ticker := "PROP" + string(rune('A'+tickerN%26))

			bars := make([]models.Bar, count)
			for i := range bars {
				bars[i] = bar(i+1, base+float64(i))
			}
			if err := s.SaveBars(ctx, ticker, PeriodDaily, bars); err != nil {
				return false
			}
			got, err := s.GetBars(ctx, ticker, PeriodDaily, time.Time{}, time.Time{})
			if err != nil || len(got) < count {
				return false
			}
			for i := range bars {
				if !got[i].Date.Equal(bars[i].Date) || got[i].Close != bars[i].Close ||
					got[i].Volume != bars[i].Volume {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.Float64Range(1, 5000),
		gen.IntRange(0, 25),
	))

	properties.TestingRun(t)
}
