package gallery

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/mlowell/blunderlab/internal/analysis"
)

// Chart pages written alongside index.html.
const (
	SeverityChartFileName = "severity.html"
	LossChartFileName     = "losses.html"
)

const (
	chartWidth  = "900px"
	chartHeight = "500px"
	chartColor  = "#4ea1ff"
)

// severityOrder fixes the x-axis order of the severity bar chart.
var severityOrder = []analysis.Severity{
	analysis.SeverityInaccuracy,
	analysis.SeverityMistake,
	analysis.SeverityBlunder,
}

// RenderSeverityChart writes an interactive bar chart counting flagged
// moves per severity and returns the path of the written file.
func (g *Gallery) RenderSeverityChart(reports []analysis.GameReport) (string, error) {
	counts := make(map[analysis.Severity]int)
	for _, rep := range reports {
		for _, rec := range rep.Errors {
			counts[rec.Severity]++
		}
	}

	bar := charts.NewBar()

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Flagged moves by severity",
			Subtitle: fmt.Sprintf("%d games scanned", len(reports)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithColorsOpts(opts.Colors{
			chartColor,
		}),
	)

	// Prepare X-axis labels
	xLabels := make([]string, len(severityOrder))
	for i, sev := range severityOrder {
		xLabels[i] = sev.String()
	}

	// Prepare Y-axis data
	yData := make([]opts.BarData, len(severityOrder))
	for i, sev := range severityOrder {
		yData[i] = opts.BarData{Value: counts[sev]}
	}

	// Add data to chart
	bar.SetXAxis(xLabels).
		AddSeries("Flagged moves", yData).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(true),
			}),
		)

	path := filepath.Join(g.outDir, SeverityChartFileName)
	if err := writeChart(bar, path); err != nil {
		return "", err
	}
	return path, nil
}

// RenderLossChart writes an interactive line chart of centipawn loss
// per flagged move, in the order the moves were found, and returns the
// path of the written file.
func (g *Gallery) RenderLossChart(reports []analysis.GameReport) (string, error) {
	var xLabels []string
	var yData []opts.LineData
	for _, rep := range reports {
		for _, rec := range rep.Errors {
			xLabels = append(xLabels, fmt.Sprintf("%s #%d", rep.GameID, rec.Ply))
			yData = append(yData, opts.LineData{Value: rec.CPLoss})
		}
	}

	line := charts.NewLine()

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Centipawn loss per flagged move",
			Subtitle: "Engine best minus move played",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithColorsOpts(opts.Colors{
			chartColor,
		}),
	)

	line.SetXAxis(xLabels).
		AddSeries("CP loss", yData).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				Smooth: opts.Bool(true),
			}),
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)

	path := filepath.Join(g.outDir, LossChartFileName)
	if err := writeChart(line, path); err != nil {
		return "", err
	}
	return path, nil
}

// renderer is satisfied by every go-echarts chart type.
type renderer interface {
	Render(w io.Writer) error
}

func writeChart(chart renderer, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	return nil
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	// Get absolute path
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
