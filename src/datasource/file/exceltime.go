package file

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// TimeLayout 转换后的时间文本格式
const TimeLayout = "2006-01-02 15:04:05"

// maxSerial 对应 9999-12-31
const maxSerial = 2958465

// Excel序列日期，如 42005.5
var serialPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// 列名包含这些关键词时视为时间列
var timeKeywords = []string{"时间", "日期", "date", "time", "_dt"}

// NormalizeTimes 时间列中的Excel序列日期转为 TimeLayout 文本，没有序列日期的列保持原样
func NormalizeTimes(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, col := range findTimeColumns(df.Names()) {
		s := df.Col(col)
		values := make([]string, s.Len())
		changed := false
		for i := range values {
			e := s.Elem(i)
			if e.IsNA() {
				values[i] = "NaN"
				continue
			}
			raw := e.String()
			values[i] = excelToTime(raw)
			if values[i] != raw {
				changed = true
			}
		}
		if !changed {
			continue
		}

		df = df.Mutate(series.New(values, series.String, col))
		if df.Err != nil {
			return df, fmt.Errorf("转换时间列 %s 失败: %w", col, df.Err)
		}
	}
	return df, nil
}

func findTimeColumns(names []string) []string {
	var timeCols []string
	for _, col := range names {
		lower := strings.ToLower(col)
		for _, kw := range timeKeywords {
			if strings.Contains(lower, kw) {
				timeCols = append(timeCols, col)
				break
			}
		}
	}
	return timeCols
}

// excelToTime Excel序列日期转文本，非数字原样返回
func excelToTime(v string) string {
	trimmed := strings.TrimSpace(v)
	if !serialPattern.MatchString(trimmed) {
		return v
	}
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || serial <= 0 || serial > maxSerial {
		return v
	}

	// 1900年系统把1900-02-29算作第60天，之后的日期以1899-12-30为基准
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if serial < 60 {
		base = base.AddDate(0, 0, 1)
	}
	days := int(serial)
	fraction := serial - float64(days)
	result := base.AddDate(0, 0, days).Add(time.Duration(fraction*86400+0.5) * time.Second)
	return result.Format(TimeLayout)
}

// cellText 日期格式的单元格按 TimeLayout 输出，其余取格式化后的文本
func cellText(cell *xlsx.Cell, date1904 bool) string {
	if cell.IsTime() {
		if t, err := cell.GetTime(date1904); err == nil {
			return t.Round(time.Second).Format(TimeLayout)
		}
	}
	return strings.TrimSpace(cell.String())
}
