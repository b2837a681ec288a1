package processor

import (
	"UberInsight/src/datasource/file"
	"UberInsight/src/utils"
	"fmt"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 标准列名
const (
	ColPickupDT = "pickup_dt"
	ColBorough  = "borough"
	ColPickups  = "pickups"
	ColTemp     = "temp"
	ColPcp01    = "pcp01"
	ColPcp06    = "pcp06"
	ColPcp24    = "pcp24"

	// 派生列
	ColDate     = "date"
	ColHour     = "time"
	ColDayNight = "day-night"
	ColDay      = "DAY"
	ColMonth    = "MONTH"
)

// SourceColumns 输入文件必须包含的列
var SourceColumns = []string{ColPickupDT, ColBorough, ColPickups, ColTemp, ColPcp01, ColPcp06, ColPcp24}

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	na              = "NaN"
)

// DeriveFeatures 解析pickup_dt并派生日期、小时、时段、星期、月份列
// 无法解析的时间及其派生列均为NaN，不会中断处理
func DeriveFeatures(df dataframe.DataFrame, layouts []string) (dataframe.DataFrame, error) {
	if !utils.HasColumn(df, ColPickupDT) {
		return df, fmt.Errorf("%w: %s", file.ErrMissingColumn, ColPickupDT)
	}

	n := df.Nrow()
	ts := df.Col(ColPickupDT)

	stamps := make([]string, n)
	dates := make([]string, n)
	hours := make([]string, n)
	parts := make([]string, n)
	days := make([]string, n)
	months := make([]string, n)

	for i := 0; i < n; i++ {
		t, ok := utils.ParseTime(ts.Elem(i), layouts)
		if !ok {
			stamps[i], dates[i], hours[i], parts[i], days[i], months[i] = na, na, na, na, na, na
			continue
		}

		stamps[i] = t.Format(timestampLayout)
		dates[i] = t.Format(dateLayout)
		hours[i] = strconv.Itoa(t.Hour())
		if p, ok := DayPartOf(t.Hour()); ok {
			parts[i] = p.String()
		} else {
			parts[i] = na
		}
		days[i] = WeekdayOf(t).String()
		months[i] = Month(t.Month()).String()
	}

	derived := []series.Series{
		series.New(stamps, series.String, ColPickupDT),
		series.New(dates, series.String, ColDate),
		series.New(hours, series.Int, ColHour),
		series.New(parts, series.String, ColDayNight),
		series.New(days, series.String, ColDay),
		series.New(months, series.String, ColMonth),
	}
	for _, s := range derived {
		df = df.Mutate(s)
		if df.Err != nil {
			return df, fmt.Errorf("添加列 %s 失败: %w", s.Name, df.Err)
		}
	}
	return df, nil
}

// CountMissing 统计某列的缺失值个数
func CountMissing(df dataframe.DataFrame, name string) int {
	if !utils.HasColumn(df, name) {
		return 0
	}
	col := df.Col(name)
	count := 0
	for i := 0; i < col.Len(); i++ {
		if col.Elem(i).IsNA() {
			count++
		}
	}
	return count
}
