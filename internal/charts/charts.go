package charts

import (
	"errors"
	"io"

	"halo-watcher/internal/repository"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData means there was nothing to plot; callers report that to the
// user instead of failing.
var ErrNoData = errors.New("charts: no data to plot")

// CSRTrend plots post-match CSR over the supplied matches, which must
// already be in chronological order.
func CSRTrend(records []repository.MatchRecord, w io.Writer) error {
	if len(records) == 0 {
		return ErrNoData
	}

	xs := matchNumbers(records)
	ys := make([]float64, len(records))
	for i, rec := range records {
		ys[i] = rec.PostCSR
	}

	graph := chart.Chart{
		Title: "CSR Trend Over Matches",
		XAxis: chart.XAxis{Name: "Match Number"},
		YAxis: chart.YAxis{Name: "Post-Match CSR"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Post-Match CSR",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 3,
					DotWidth:    4,
				},
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// KillsDeaths plots actual kills and deaths against the matchmaker's
// expected values, expectations dashed.
func KillsDeaths(records []repository.MatchRecord, w io.Writer) error {
	if len(records) == 0 {
		return ErrNoData
	}

	xs := matchNumbers(records)
	kills := make([]float64, len(records))
	killsExp := make([]float64, len(records))
	deaths := make([]float64, len(records))
	deathsExp := make([]float64, len(records))
	for i, rec := range records {
		kills[i] = float64(rec.Kills)
		killsExp[i] = rec.KillsExpected
		deaths[i] = float64(rec.Deaths)
		deathsExp[i] = rec.DeathsExpected
	}

	graph := chart.Chart{
		Title: "Kills, Deaths, and Expected Performance",
		XAxis: chart.XAxis{Name: "Match Number"},
		YAxis: chart.YAxis{Name: "Count"},
		Series: []chart.Series{
			solidSeries("Kills", xs, kills, drawing.ColorRed),
			dashedSeries("Expected Kills", xs, killsExp, drawing.ColorRed),
			solidSeries("Deaths", xs, deaths, drawing.ColorBlue),
			dashedSeries("Expected Deaths", xs, deathsExp, drawing.ColorBlue),
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

// KDRatio plots the kill/death ratio per match, treating zero deaths as
// one to keep the ratio finite.
func KDRatio(records []repository.MatchRecord, w io.Writer) error {
	if len(records) == 0 {
		return ErrNoData
	}

	xs := matchNumbers(records)
	ys := make([]float64, len(records))
	for i, rec := range records {
		deaths := rec.Deaths
		if deaths == 0 {
			deaths = 1
		}
		ys[i] = float64(rec.Kills) / float64(deaths)
	}

	graph := chart.Chart{
		Title: "K/D Ratio Over Matches",
		XAxis: chart.XAxis{Name: "Match Number"},
		YAxis: chart.YAxis{Name: "K/D Ratio"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "K/D Ratio",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 3,
					DotWidth:    4,
				},
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

func matchNumbers(records []repository.MatchRecord) []float64 {
	xs := make([]float64, len(records))
	for i := range records {
		xs[i] = float64(i + 1)
	}
	return xs
}

func solidSeries(name string, xs, ys []float64, color drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: 3,
			DotWidth:    3,
			DotColor:    color,
		},
	}
}

func dashedSeries(name string, xs, ys []float64, color drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor:     color.WithAlpha(160),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}
