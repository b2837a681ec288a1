package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// DefaultTimeLayouts 时间列依次尝试的格式
var DefaultTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
}

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// ParseTime 按给定格式依次解析，空值或NaN返回false
func ParseTime(s series.Element, layouts []string) (time.Time, bool) {
	if s.IsNA() {
		return time.Time{}, false
	}
	return ParseTimeString(s.String(), layouts)
}

func ParseTimeString(str string, layouts []string) (time.Time, bool) {
	str = strings.TrimSpace(str)
	if str == "" {
		return time.Time{}, false
	}
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatElement 缺失值为空，浮点数使用最短表示，不丢失精度
func FormatElement(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	if e.Type() == series.Float {
		return strconv.FormatFloat(e.Float(), 'f', -1, 64)
	}
	return e.String()
}

// EmptyLike 返回列名和类型相同的空DataFrame
func EmptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	names := df.Names()
	types := df.Types()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = series.New([]string{}, types[i], name)
	}
	return dataframe.New(cols...)
}

// Subset 按行号取子集，行号为空时返回空表
func Subset(df dataframe.DataFrame, rows []int) dataframe.DataFrame {
	if len(rows) == 0 {
		return EmptyLike(df)
	}
	return df.Subset(rows)
}

// WriteSheet 将DataFrame写入工作簿的指定sheet，首行为列名
func WriteSheet(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	if idx, _ := f.GetSheetIndex(sheetName); idx < 0 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("创建sheet %s 失败: %w", sheetName, err)
		}
	}

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, cellValue(col.Elem(rowIdx))); err != nil {
				return err
			}
		}
	}
	return nil
}

func cellValue(e series.Element) interface{} {
	if e.IsNA() {
		return ""
	}
	switch e.Type() {
	case series.Int:
		if v, err := e.Int(); err == nil {
			return v
		}
	case series.Float:
		return e.Float()
	case series.Bool:
		if v, err := e.Bool(); err == nil {
			return v
		}
	}
	return e.String()
}
