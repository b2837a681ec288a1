// reader.go
package file

import (
	"UberInsight/src/utils"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/tealeg/xlsx"
)

var (
	ErrEmptyInput    = errors.New("输入数据为空")
	ErrMissingColumn = errors.New("缺少必要的列")
)

// MissingMarkers 视为缺失值的单元格内容
var MissingMarkers = []string{"", "NA", "NaN", "nan", "null", "NULL", "None", "<nil>"}

// Options 读取选项
type Options struct {
	Delimiter rune   // csv分隔符，0表示逗号
	SheetName string // xlsx工作表名，为空时取第一个
}

// Load 根据扩展名读取csv或xlsx
func Load(filePath string, opts Options) (dataframe.DataFrame, error) {
	if isXLSX(filePath) {
		return ReadXLSX(filePath, opts.SheetName)
	}
	return ReadCSV(filePath, opts.Delimiter)
}

// LoadBytes 读取附件等内存中的数据
func LoadBytes(name string, data []byte, opts Options) (dataframe.DataFrame, error) {
	if isXLSX(name) {
		xlFile, err := xlsx.OpenBinary(data)
		if err != nil {
			return dataframe.New(), fmt.Errorf("xlsx open binary false: %w", err)
		}
		return sheetToDataFrame(xlFile, opts.SheetName)
	}
	return parseCSV(bytes.NewReader(data), opts.Delimiter)
}

func isXLSX(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

// ReadCSV 读取带表头的分隔符文本
func ReadCSV(filePath string, delimiter rune) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	df, err := parseCSV(f, delimiter)
	if err != nil {
		return df, fmt.Errorf("%s: %w", filePath, err)
	}
	return df, nil
}

// parseCSV 先校验表头，再交给gota读取并推断类型
func parseCSV(r io.Reader, delimiter rune) (dataframe.DataFrame, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return dataframe.New(), fmt.Errorf("读取csv失败: %w", err)
	}

	if err := checkCSVHeader(data, delimiter); err != nil {
		return dataframe.New(), err
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.WithDelimiter(delimiter),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(MissingMarkers),
	)
	if df.Err != nil {
		return df, fmt.Errorf("解析csv失败: %w", df.Err)
	}
	return NormalizeTimes(df)
}

// checkCSVHeader gota会自动改名重复或空的列，这里提前拒绝，并确认至少有一行数据
func checkCSVHeader(data []byte, delimiter rune) error {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter

	headers, err := reader.Read()
	if err == io.EOF {
		return ErrEmptyInput
	}
	if err != nil {
		return fmt.Errorf("解析csv表头失败: %w", err)
	}
	if err := checkHeaders(headers); err != nil {
		return err
	}

	if _, err := reader.Read(); err == io.EOF {
		return ErrEmptyInput
	}
	return nil
}

func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
	}
	return sheetToDataFrame(xlFile, sheetName)
}

func sheetToDataFrame(xlFile *xlsx.File, sheetName string) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表: %w", ErrEmptyInput)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	df, err := recordsToDataFrame(convertSheetToRecords(sheet, xlFile.Date1904))
	if err != nil {
		return df, err
	}
	return NormalizeTimes(df)
}

// convertSheetToRecords 将xlsx.Sheet转换为二维字符串，首行为标题行
func convertSheetToRecords(sheet *xlsx.Sheet, date1904 bool) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}
	// 去掉表头末尾的空列
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				record[i] = cellText(cell, date1904)
				if record[i] != "" {
					empty = false
				}
			}
		}
		// 跳过完全空的行
		if empty {
			continue
		}
		records = append(records, record)
	}
	return records
}

// recordsToDataFrame 校验表头后由gota统一缺失值并推断列类型
func recordsToDataFrame(records [][]string) (dataframe.DataFrame, error) {
	if len(records) < 2 {
		return dataframe.New(), ErrEmptyInput
	}
	if err := checkHeaders(records[0]); err != nil {
		return dataframe.New(), err
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(MissingMarkers),
	)
	if df.Err != nil {
		return df, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

func checkHeaders(headers []string) error {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h == "" {
			return fmt.Errorf("表头存在空列名")
		}
		if seen[h] {
			return fmt.Errorf("表头存在重复列名: %s", h)
		}
		seen[h] = true
	}
	return nil
}

// RenameColumns 按 标准列名->源列名 的映射重命名
func RenameColumns(df dataframe.DataFrame, mapping map[string]string) (dataframe.DataFrame, error) {
	for canonical, source := range mapping {
		if source == "" || source == canonical {
			continue
		}
		if !utils.HasColumn(df, source) {
			return df, fmt.Errorf("%w: %s (映射为 %s)", ErrMissingColumn, source, canonical)
		}
		df = df.Rename(canonical, source)
		if df.Err != nil {
			return df, fmt.Errorf("重命名列 %s 失败: %w", source, df.Err)
		}
	}
	return df, nil
}

// RequireColumns 检查必要的列是否存在
func RequireColumns(df dataframe.DataFrame, names ...string) error {
	for _, name := range names {
		if !utils.HasColumn(df, name) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// Preview 返回前n行，用于日志输出
func Preview(df dataframe.DataFrame, n int) dataframe.DataFrame {
	if df.Nrow() <= n {
		return df
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return df.Subset(rows)
}

// Shape 返回行列数
func Shape(df dataframe.DataFrame) (int, int) {
	return df.Nrow(), df.Ncol()
}

// Info 每列的类型及非缺失值个数
func Info(df dataframe.DataFrame) string {
	var b strings.Builder
	types := df.Types()
	for i, name := range df.Names() {
		nonNull := 0
		for _, na := range df.Col(name).IsNaN() {
			if !na {
				nonNull++
			}
		}
		fmt.Fprintf(&b, "%2d  %-12s %5d non-null  %s\n", i, name, nonNull, types[i])
	}
	return b.String()
}
