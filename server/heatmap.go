package main

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var heatmapColors = []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}

// renderHeatmap draws per-cell entity counts (indexed [x][y]) as an HTML page
func renderHeatmap(title string, occupancy [][]int) ([]byte, error) {
	if len(occupancy) == 0 {
		return nil, fmt.Errorf("empty occupancy")
	}
	cellsX, cellsY := len(occupancy), len(occupancy[0])

	xLabels := make([]string, cellsX)
	for x := range xLabels {
		xLabels[x] = strconv.Itoa(x)
	}
	yLabels := make([]string, cellsY)
	for y := range yLabels {
		yLabels[y] = strconv.Itoa(y)
	}

	data := make([]opts.HeatMapData, 0, cellsX*cellsY)
	maxCount, total := 0, 0
	for x, col := range occupancy {
		for y, n := range col {
			if n == 0 {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{x, y, n}})
			maxCount = max(maxCount, n)
			total += n
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Grid occupancy", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("cells=%dx%d memberships=%d", cellsX, cellsY, total)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "x"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "y", Data: yLabels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(max(maxCount, 1)),
			InRange:    &opts.VisualMapInRange{Color: heatmapColors},
		}),
	)
	hm.SetXAxis(xLabels)
	hm.AddSeries("occupancy", data)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
