package charts

import (
	"bytes"
	"testing"
	"time"

	"halo-watcher/internal/repository"
)

func testRecords(n int) []repository.MatchRecord {
	base := time.Date(2025, 8, 26, 20, 0, 0, 0, time.UTC)
	records := make([]repository.MatchRecord, n)
	for i := range records {
		records[i] = repository.MatchRecord{
			MatchID:        "m",
			StartTime:      base.Add(time.Duration(i) * 20 * time.Minute),
			PostCSR:        1500 + float64(i*5),
			PreCSR:         1495 + float64(i*5),
			Kills:          10 + i,
			Deaths:         8,
			KillsExpected:  11.0,
			DeathsExpected: 9.0,
		}
	}
	return records
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestChartsRenderPNG(t *testing.T) {
	renderers := map[string]func([]repository.MatchRecord, *bytes.Buffer) error{
		"csr": func(r []repository.MatchRecord, w *bytes.Buffer) error { return CSRTrend(r, w) },
		"kd":  func(r []repository.MatchRecord, w *bytes.Buffer) error { return KillsDeaths(r, w) },
		"kdr": func(r []repository.MatchRecord, w *bytes.Buffer) error { return KDRatio(r, w) },
	}

	records := testRecords(6)
	for name, render := range renderers {
		var buf bytes.Buffer
		if err := render(records, &buf); err != nil {
			t.Errorf("%s: render failed: %v", name, err)
			continue
		}
		if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
			t.Errorf("%s: output is not a PNG", name)
		}
	}
}

func TestChartsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	if err := CSRTrend(nil, &buf); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err := KillsDeaths(nil, &buf); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err := KDRatio(nil, &buf); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no artifact bytes expected for empty input")
	}
}

func TestKDRatioZeroDeaths(t *testing.T) {
	records := testRecords(3)
	records[1].Deaths = 0

	var buf bytes.Buffer
	if err := KDRatio(records, &buf); err != nil {
		t.Fatalf("zero deaths must not break the ratio chart: %v", err)
	}
}
