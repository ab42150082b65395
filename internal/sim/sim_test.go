package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"plumsim/internal/store"
	"plumsim/internal/strategy"
)

const simDescriptor = `
breakout:
  PARAMS:
    INIT_CAP: 1000
  BUY:
    AND:
      In: Close > PrevClose
      Out: Open
      Timeframe: Day1
  SELL:
    In: Close < PrevClose
`

func writeDaily(t *testing.T, dir, ticker, csv string) {
	t.Helper()
	path := store.DailyPath(dir, ticker)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRunAcrossInstruments(t *testing.T) {
	dir := t.TempDir()
	// AAA rises then dips: one buy on day 2, one sell on day 4.
	writeDaily(t, dir, "AAA", "date,open,high,low,close,volume\n"+
		"2024-05-01,10,10.5,9.8,10,1000\n"+
		"2024-05-02,10.1,10.8,10,10.6,1200\n"+
		"2024-05-03,10.7,11.2,10.5,11,1100\n"+
		"2024-05-04,10.9,11,10.2,10.4,900\n")
	// BBB falls monotonically: never buys.
	writeDaily(t, dir, "BBB", "date,open,high,low,close,volume\n"+
		"2024-05-01,10,10.2,9.5,9.8,1000\n"+
		"2024-05-02,9.7,9.8,9.2,9.4,800\n")

	strat, err := strategy.Parse([]byte(simDescriptor), "breakout", zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	loader := store.NewLoader(dir, nil, zerolog.Nop())
	s := New(loader, zerolog.Nop(), 2)

	out, err := s.Run(context.Background(), strat, []string{"AAA", "BBB"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(out.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(out.Results))
	}
	// Results keep submission order regardless of worker scheduling.
	if out.Results[0].Ticker != "AAA" || out.Results[1].Ticker != "BBB" {
		t.Errorf("result order = %s, %s", out.Results[0].Ticker, out.Results[1].Ticker)
	}

	aaa := out.Results[0]
	if aaa.Err != nil {
		t.Fatalf("AAA err: %v", aaa.Err)
	}
	if len(aaa.Result.Trades) == 0 {
		t.Fatal("AAA produced no trades")
	}

	bbb := out.Results[1]
	if bbb.Err != nil {
		t.Fatalf("BBB err: %v", bbb.Err)
	}
	if len(bbb.Result.Positions) != 0 {
		t.Errorf("BBB positions = %d, want 0", len(bbb.Result.Positions))
	}

	if out.Summary == nil || len(out.Summary.Trades) == 0 {
		t.Error("summary missing merged trades")
	}
}

func TestRunIsolatesInstrumentErrors(t *testing.T) {
	dir := t.TempDir()
	writeDaily(t, dir, "GOOD", "date,open,high,low,close,volume\n"+
		"2024-05-01,10,10.5,9.8,10,1000\n"+
		"2024-05-02,10.1,10.8,10,10.6,1200\n")

	strat, err := strategy.Parse([]byte(simDescriptor), "breakout", zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	loader := store.NewLoader(dir, nil, zerolog.Nop())
	s := New(loader, zerolog.Nop(), 2)

	out, err := s.Run(context.Background(), strat, []string{"MISSING", "GOOD"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Results[0].Err == nil {
		t.Error("missing instrument produced no error")
	}
	if out.Results[1].Err != nil {
		t.Errorf("good instrument failed: %v", out.Results[1].Err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strat, err := strategy.Parse([]byte(simDescriptor), "breakout", zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	loader := store.NewLoader(t.TempDir(), nil, zerolog.Nop())
	s := New(loader, zerolog.Nop(), 2)

	out, err := s.Run(ctx, strat, []string{"AAA"})
	if err == nil {
		t.Error("cancelled run returned nil error")
	}
	if out == nil {
		t.Error("cancelled run returned nil output")
	}
}
