package exporter

import (
	"UberInsight/src/processor"
	"UberInsight/src/utils"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const (
	SheetDashboard = "Dashboard"
	SheetMonthly   = "Monthly"
	SheetDayPart   = "DayPart"
	SheetWeekday   = "Weekday"
	SheetRainfall  = "Rainfall"
)

// WriteWorkbook 看板数据及各项统计写入一个xlsx文件
func WriteWorkbook(filePath string, df dataframe.DataFrame, s processor.Summary) error {
	dashboard, err := Dashboard(df)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// 默认的Sheet1改名为看板页
	if err := f.SetSheetName("Sheet1", SheetDashboard); err != nil {
		return fmt.Errorf("重命名sheet失败: %w", err)
	}

	sheets := []struct {
		name string
		df   dataframe.DataFrame
	}{
		{SheetDashboard, dashboard},
		{SheetMonthly, monthlyFrame(s.Monthly)},
		{SheetDayPart, dayPartFrame(s.DayParts)},
		{SheetWeekday, weekdayFrame(s.Weekdays)},
		{SheetRainfall, rainfallFrame(s.Rainfall)},
	}
	for _, sh := range sheets {
		if err := utils.WriteSheet(f, sh.name, sh.df); err != nil {
			return fmt.Errorf("写入sheet %s 失败: %w", sh.name, err)
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func monthlyFrame(months []processor.MonthTotal) dataframe.DataFrame {
	labels := make([]string, len(months))
	totals := make([]float64, len(months))
	rows := make([]int, len(months))
	for i, m := range months {
		labels[i], totals[i], rows[i] = m.Label, m.Pickups, m.Rows
	}
	return dataframe.New(
		series.New(labels, series.String, processor.ColMonth),
		series.New(totals, series.Float, processor.ColPickups),
		series.New(rows, series.Int, "rows"),
	)
}

func dayPartFrame(parts []processor.DayPartShare) dataframe.DataFrame {
	labels := make([]string, len(parts))
	counts := make([]int, len(parts))
	percents := make([]float64, len(parts))
	for i, p := range parts {
		labels[i], counts[i], percents[i] = p.Label, p.Count, p.Percent
	}
	return dataframe.New(
		series.New(labels, series.String, processor.ColDayNight),
		series.New(counts, series.Int, "rides"),
		series.New(percents, series.Float, "percent"),
	)
}

func weekdayFrame(days []processor.WeekdayCount) dataframe.DataFrame {
	labels := make([]string, len(days))
	counts := make([]int, len(days))
	for i, d := range days {
		labels[i], counts[i] = d.Label, d.Count
	}
	return dataframe.New(
		series.New(labels, series.String, processor.ColDay),
		series.New(counts, series.Int, "rides"),
	)
}

// rainfallFrame 每个降雨窗口一行，含点数及相关系数
func rainfallFrame(rain []processor.RainfallSeries) dataframe.DataFrame {
	columns := make([]string, len(rain))
	labels := make([]string, len(rain))
	points := make([]int, len(rain))
	corr := make([]float64, len(rain))
	for i, r := range rain {
		columns[i], labels[i], points[i], corr[i] = r.Column, r.Label, len(r.Points), r.Correlation
	}
	return dataframe.New(
		series.New(columns, series.String, "column"),
		series.New(labels, series.String, "label"),
		series.New(points, series.Int, "points"),
		series.New(corr, series.Float, "correlation"),
	)
}
