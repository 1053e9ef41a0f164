// Package charts renders report images.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Veraticus/ledgerbot/internal/classify"
	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoData is returned when a report has nothing to draw.
var ErrNoData = errors.New("report has no totals to chart")

// Renderer draws report totals as PNG bar charts.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a renderer with the default image size.
func NewRenderer() *Renderer {
	return &Renderer{Width: 1200, Height: 600}
}

// RenderTotals draws one bar per report bucket.
func (r *Renderer) RenderTotals(report *classify.Report) ([]byte, error) {
	if report == nil || len(report.Buckets) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(report.Buckets))
	for i, bucket := range report.Buckets {
		color := chart.GetDefaultColor(i)
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s: %.2f", bucket.Category, bucket.Total),
			Value: bucket.Total,
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color,
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
	}
	// A lone bar leaves go-chart with a zero value range.
	if len(bars) == 1 {
		bars = append(bars, chart.Value{Label: " ", Value: 0})
	}

	graph := chart.BarChart{
		Title: fmt.Sprintf("Total %.2f", report.Total),
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render totals chart: %w", err)
	}
	return buffer.Bytes(), nil
}
