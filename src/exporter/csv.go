package exporter

import (
	"UberInsight/src/datasource/file"
	"UberInsight/src/processor"
	"UberInsight/src/utils"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ExportColumns 看板数据的列及顺序
var ExportColumns = []string{
	processor.ColPickupDT,
	processor.ColBorough,
	processor.ColPickups,
	processor.ColTemp,
	processor.ColPcp01,
	processor.ColPcp06,
	processor.ColPcp24,
	processor.ColDay,
	processor.ColMonth,
	processor.ColDayNight,
}

// WriteOptions CSV写出选项
type WriteOptions struct {
	Delimiter rune // 0表示逗号
	BOMPrefix bool // 写入UTF-8 BOM，便于Excel识别
}

// Dashboard 按固定顺序选出看板需要的列
func Dashboard(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := file.RequireColumns(df, ExportColumns...); err != nil {
		return df, err
	}
	out := df.Select(ExportColumns)
	if out.Err != nil {
		return out, fmt.Errorf("选择导出列失败: %w", out.Err)
	}
	return out, nil
}

// WriteCSV 写出带表头、无行号的CSV，已存在的文件会被覆盖
func WriteCSV(filePath string, df dataframe.DataFrame, opts WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if opts.BOMPrefix {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(f)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	if err := writer.Write(df.Names()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	cols := make([]series.Series, df.Ncol())
	for i, name := range df.Names() {
		cols[i] = df.Col(name)
	}

	record := make([]string, len(cols))
	for row := 0; row < df.Nrow(); row++ {
		for i, col := range cols {
			record[i] = utils.FormatElement(col.Elem(row))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", row, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Close()
}
