package http

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"budgetbook/internal/core"
)

const (
	chartSize  = 220
	emptyColor = "#e5e7eb"
)

var sliceColors = map[core.Category]string{
	core.Food:      "#06b6d4",
	core.Rent:      "#14b8a6",
	core.Utilities: "#f59e0b",
	core.Transport: "#10b981",
	core.Others:    "#64748b",
}

type chartData struct {
	Empty  bool
	Slices []chartSlice
	Legend []legendEntry
}

type chartSlice struct {
	Category string
	Color    string
	Cents    int64
	Label    string // drawn on the slice, e.g. "Food 50%"
}

type legendEntry struct {
	Category string
	Color    string
	Amount   string
	Title    string // tooltip, e.g. "Food: ₹250.00 (50%)"
}

// buildChart keeps one slice per non-zero category in fixed category order.
// The legend lists every category.
func buildChart(breakdown []core.CategoryAmount, symbol string) chartData {
	var cd chartData
	var total int64
	for _, ca := range breakdown {
		total += ca.Amount.Cents
		cd.Legend = append(cd.Legend, legendEntry{
			Category: string(ca.Category),
			Color:    sliceColor(ca.Category),
			Amount:   formatMoney(symbol, ca.Amount),
			Title:    sliceTitle(symbol, ca),
		})
		if ca.Amount.Cents > 0 {
			cd.Slices = append(cd.Slices, chartSlice{
				Category: string(ca.Category),
				Color:    sliceColor(ca.Category),
				Cents:    ca.Amount.Cents,
				Label:    fmt.Sprintf("%s %d%%", ca.Category, ca.Percent),
			})
		}
	}
	cd.Empty = total <= 0
	return cd
}

// SVG renders the pie. Without expenses it draws a single grey disc.
func (cd chartData) SVG() (template.HTML, error) {
	values := make([]chart.Value, 0, len(cd.Slices)+1)
	for _, s := range cd.Slices {
		values = append(values, chart.Value{
			Value: float64(s.Cents),
			Label: s.Label,
			Style: sliceStyle(s.Color),
		})
	}
	if cd.Empty {
		values = append(values, chart.Value{Value: 1, Style: sliceStyle(emptyColor)})
	}

	pie := chart.PieChart{
		Width:  chartSize,
		Height: chartSize,
		Values: values,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.SVG, &buf); err != nil {
		return "", fmt.Errorf("render pie chart: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func sliceStyle(hex string) chart.Style {
	return chart.Style{
		FillColor:   drawing.ColorFromHex(strings.TrimPrefix(hex, "#")),
		StrokeColor: drawing.ColorWhite,
		StrokeWidth: 1,
		FontColor:   drawing.ColorWhite,
	}
}

func sliceTitle(symbol string, ca core.CategoryAmount) string {
	return fmt.Sprintf("%s: %s (%d%%)", ca.Category, formatMoney(symbol, ca.Amount), ca.Percent)
}

func sliceColor(c core.Category) string {
	if color, ok := sliceColors[c]; ok {
		return color
	}
	return "#9ca3af"
}
