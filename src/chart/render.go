// Package chart 将统计结果渲染为一个HTML图表页面
package chart

import (
	"UberInsight/src/processor"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	TitleMonthly  = "Monthly Ride Trend"
	TitleDayParts = "Ride Distribution: Morning vs Afternoon vs Evening vs Night"
	TitleRainfall = "Impact of Rainfall on Number of Pickups"
	TitleWeekdays = "Number of Rides by Day of Week"
)

// 散点半透明
var rainfallColors = []string{
	"rgba(84, 112, 198, 0.5)",
	"rgba(145, 204, 117, 0.5)",
	"rgba(238, 102, 102, 0.5)",
}

// Render 写出包含四张图的页面
func Render(w io.Writer, s processor.Summary) error {
	page := components.NewPage()
	page.PageTitle = "Uber Pickups"
	page.AddCharts(
		monthlyLine(s.Monthly),
		dayPartPie(s.DayParts),
		rainfallScatter(s.Rainfall),
		weekdayBar(s.Weekdays),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("渲染图表失败: %w", err)
	}
	return nil
}

// RenderFile 渲染到文件，目录不存在时创建
func RenderFile(path string, s processor.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建图表文件失败: %w", err)
	}
	defer f.Close()

	if err := Render(f, s); err != nil {
		return err
	}
	return f.Close()
}

func monthlyLine(months []processor.MonthTotal) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: TitleMonthly}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Total Pickups"}),
	)

	labels := make([]string, len(months))
	data := make([]opts.LineData, len(months))
	for i, m := range months {
		labels[i] = m.Label
		// 没有数据的月份留空
		if m.Rows == 0 {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: m.Pickups}
	}

	line.SetXAxis(labels).
		AddSeries("Pickups", data).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	return line
}

func dayPartPie(parts []processor.DayPartShare) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: TitleDayParts}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	items := make([]opts.PieData, 0, len(parts))
	for _, p := range parts {
		items = append(items, opts.PieData{Name: p.Label, Value: p.Count})
	}

	pie.AddSeries("day-night", items).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}: {d}%",
		}))
	return pie
}

func rainfallScatter(series []processor.RainfallSeries) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: TitleRainfall}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Rainfall (inches)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Number of Pickups", Type: "value"}),
	)

	for i, s := range series {
		points := make([]opts.ScatterData, 0, len(s.Points))
		for _, p := range s.Points {
			points = append(points, opts.ScatterData{Value: []interface{}{p.Rainfall, p.Pickups}})
		}
		scatter.AddSeries(s.Label, points,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: rainfallColors[i%len(rainfallColors)]}),
		)
	}
	return scatter
}

func weekdayBar(days []processor.WeekdayCount) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: TitleWeekdays}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Day of Week"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Number of Rides"}),
	)

	labels := make([]string, len(days))
	data := make([]opts.BarData, len(days))
	for i, d := range days {
		labels[i] = d.Label
		data[i] = opts.BarData{Value: d.Count}
	}
	bar.SetXAxis(labels).AddSeries("Rides", data)
	return bar
}
