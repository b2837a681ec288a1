package processor

import (
	"UberInsight/src/utils"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// CleanStats 清洗前后的行数统计
type CleanStats struct {
	Before            int
	DroppedMissing    int
	DroppedDuplicates int
	After             int
}

// DropMissing 任意一列存在缺失值即删除整行
func DropMissing(df dataframe.DataFrame) dataframe.DataFrame {
	return DropMissingIn(df)
}

// DropMissingIn 只检查指定的列，未指定时检查全部列
// 不存在的列忽略
func DropMissingIn(df dataframe.DataFrame, names ...string) dataframe.DataFrame {
	if len(names) == 0 {
		names = df.Names()
	}

	// df.Col 每次都会复制，先取出
	var cols []series.Series
	for _, name := range names {
		if utils.HasColumn(df, name) {
			cols = append(cols, df.Col(name))
		}
	}

	keep := make([]int, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		missing := false
		for _, col := range cols {
			if col.Elem(i).IsNA() {
				missing = true
				break
			}
		}
		if !missing {
			keep = append(keep, i)
		}
	}

	if len(keep) == df.Nrow() {
		return df
	}
	return utils.Subset(df, keep)
}

// DropDuplicates 删除所有列完全相同的重复行，保留第一次出现的行
func DropDuplicates(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() <= 1 {
		return df
	}

	names := df.Names()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = df.Col(name)
	}

	seen := make(map[string]struct{}, df.Nrow())
	keep := make([]int, 0, df.Nrow())
	for row := 0; row < df.Nrow(); row++ {
		key := rowKey(cols, row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, row)
	}

	if len(keep) == df.Nrow() {
		return df
	}
	return utils.Subset(df, keep)
}

// rowKey 按列的实际值拼接，浮点数按完整精度
func rowKey(cols []series.Series, row int) string {
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		e := col.Elem(row)
		if e.IsNA() {
			b.WriteByte(0) // 缺失值与空字符串区分
			continue
		}
		b.WriteString(utils.FormatElement(e))
	}
	return b.String()
}

// Clean 先删除缺失值再去重
func Clean(df dataframe.DataFrame, subset []string) (dataframe.DataFrame, CleanStats) {
	stats := CleanStats{Before: df.Nrow()}

	df = DropMissingIn(df, subset...)
	stats.DroppedMissing = stats.Before - df.Nrow()

	deduped := DropDuplicates(df)
	stats.DroppedDuplicates = df.Nrow() - deduped.Nrow()
	stats.After = deduped.Nrow()

	return deduped, stats
}
