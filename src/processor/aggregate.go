package processor

import (
	"UberInsight/src/datasource/file"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

// MonthTotal 某月的上车总数，Rows为0表示该月没有数据
type MonthTotal struct {
	Month   Month
	Label   string
	Pickups float64
	Rows    int
}

type DayPartShare struct {
	Part    DayPart
	Label   string
	Count   int
	Percent float64
}

type RainfallPoint struct {
	Rainfall float64
	Pickups  float64
}

// RainfallSeries 某个降雨窗口与上车数的散点及相关系数
type RainfallSeries struct {
	Column      string
	Label       string
	Points      []RainfallPoint
	Correlation float64
}

type WeekdayCount struct {
	Day   Weekday
	Label string
	Count int
}

// Summary 四项统计结果
type Summary struct {
	Rows     int
	Monthly  []MonthTotal
	DayParts []DayPartShare
	Rainfall []RainfallSeries
	Weekdays []WeekdayCount
}

// rainfallWindows 降雨列与图例名称
var rainfallWindows = []struct {
	column string
	label  string
}{
	{ColPcp01, "Rainfall 1hr"},
	{ColPcp06, "Rainfall 6hr"},
	{ColPcp24, "Rainfall 24hr"},
}

// MonthlyTrend 按月汇总上车数，固定返回Jan..Dec共12项
func MonthlyTrend(df dataframe.DataFrame) ([]MonthTotal, error) {
	if err := file.RequireColumns(df, ColMonth, ColPickups); err != nil {
		return nil, err
	}

	out := make([]MonthTotal, len(Months))
	for i, m := range Months {
		out[i] = MonthTotal{Month: m, Label: m.String()}
	}

	months := df.Col(ColMonth)
	pickups := df.Col(ColPickups)
	for i := 0; i < df.Nrow(); i++ {
		m, ok := ParseMonth(months.Elem(i).String())
		if !ok {
			continue
		}
		v := pickups.Elem(i).Float()
		if math.IsNaN(v) {
			continue
		}
		out[m-1].Pickups += v
		out[m-1].Rows++
	}
	return out, nil
}

// DayPartDistribution 各时段的行数及占比(百分数)
func DayPartDistribution(df dataframe.DataFrame) ([]DayPartShare, error) {
	if err := file.RequireColumns(df, ColDayNight); err != nil {
		return nil, err
	}

	out := make([]DayPartShare, len(DayParts))
	for i, p := range DayParts {
		out[i] = DayPartShare{Part: p, Label: p.String()}
	}

	col := df.Col(ColDayNight)
	total := 0
	for i := 0; i < df.Nrow(); i++ {
		if p, ok := ParseDayPart(col.Elem(i).String()); ok {
			out[p].Count++
			total++
		}
	}

	if total > 0 {
		for i := range out {
			out[i].Percent = float64(out[i].Count) / float64(total) * 100
		}
	}
	return out, nil
}

// RainfallImpact 上车数与三个降雨窗口的散点
func RainfallImpact(df dataframe.DataFrame) ([]RainfallSeries, error) {
	required := []string{ColPickups}
	for _, w := range rainfallWindows {
		required = append(required, w.column)
	}
	if err := file.RequireColumns(df, required...); err != nil {
		return nil, err
	}

	pickups := df.Col(ColPickups).Float()
	out := make([]RainfallSeries, 0, len(rainfallWindows))
	for _, w := range rainfallWindows {
		rain := df.Col(w.column).Float()

		s := RainfallSeries{Column: w.column, Label: w.label}
		xs := make([]float64, 0, len(rain))
		ys := make([]float64, 0, len(rain))
		for i := range rain {
			if math.IsNaN(rain[i]) || math.IsNaN(pickups[i]) {
				continue
			}
			s.Points = append(s.Points, RainfallPoint{Rainfall: rain[i], Pickups: pickups[i]})
			xs = append(xs, rain[i])
			ys = append(ys, pickups[i])
		}
		s.Correlation = correlation(xs, ys)
		out = append(out, s)
	}
	return out, nil
}

// correlation 皮尔逊相关系数，样本不足或方差为0时为NaN
func correlation(xs, ys []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// WeekdayCounts 按Mon..Sun统计行数
func WeekdayCounts(df dataframe.DataFrame) ([]WeekdayCount, error) {
	if err := file.RequireColumns(df, ColDay); err != nil {
		return nil, err
	}

	out := make([]WeekdayCount, len(Weekdays))
	for i, d := range Weekdays {
		out[i] = WeekdayCount{Day: d, Label: d.String()}
	}

	col := df.Col(ColDay)
	for i := 0; i < df.Nrow(); i++ {
		if d, ok := ParseWeekday(col.Elem(i).String()); ok {
			out[d].Count++
		}
	}
	return out, nil
}

// Summarize 计算全部四项统计
func Summarize(df dataframe.DataFrame) (Summary, error) {
	var (
		s   = Summary{Rows: df.Nrow()}
		err error
	)
	if s.Monthly, err = MonthlyTrend(df); err != nil {
		return s, err
	}
	if s.DayParts, err = DayPartDistribution(df); err != nil {
		return s, err
	}
	if s.Rainfall, err = RainfallImpact(df); err != nil {
		return s, err
	}
	if s.Weekdays, err = WeekdayCounts(df); err != nil {
		return s, err
	}
	return s, nil
}

// BusiestMonth 上车总数最多的月份，没有数据时返回false
func (s Summary) BusiestMonth() (MonthTotal, bool) {
	var best MonthTotal
	found := false
	for _, m := range s.Monthly {
		if m.Rows == 0 {
			continue
		}
		if !found || m.Pickups > best.Pickups {
			best, found = m, true
		}
	}
	return best, found
}

// BusiestWeekday 行数最多的星期
func (s Summary) BusiestWeekday() (WeekdayCount, bool) {
	var best WeekdayCount
	found := false
	for _, d := range s.Weekdays {
		if d.Count == 0 {
			continue
		}
		if !found || d.Count > best.Count {
			best, found = d, true
		}
	}
	return best, found
}
