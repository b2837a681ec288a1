package pipeline

import (
	"UberInsight/src/processor"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportLines(t *testing.T) {
	r := &Report{
		Input:       "/data/uber.csv",
		Loaded:      3,
		Unparseable: 1,
		Clean:       processor.CleanStats{Before: 3, DroppedMissing: 1, DroppedDuplicates: 1, After: 1},
		Summary: processor.Summary{
			Rows:     1,
			Monthly:  []processor.MonthTotal{{Month: processor.Month(1), Label: "Jan", Pickups: 5, Rows: 1}},
			Weekdays: []processor.WeekdayCount{{Label: "Thurs", Count: 1}},
		},
		OutputPath: "out.csv",
	}

	lines := r.Lines()
	assert.Equal(t, "输入文件: uber.csv", lines[0])
	assert.Contains(t, lines, "有效行数: 1")
	assert.Contains(t, lines, "无法解析的时间: 1")
	assert.Contains(t, lines, "订单最多的月份: Jan (5)")
	assert.Contains(t, lines, "订单最多的星期: Thurs (1)")
	assert.Contains(t, lines, "看板数据: out.csv")

	assert.Equal(t, []string{"out.csv"}, r.Attachments())
	r.ChartPath = "chart.html"
	assert.Equal(t, []string{"out.csv", "chart.html"}, r.Attachments())
}

func TestReportLinesEmptySummary(t *testing.T) {
	lines := (&Report{Input: "x.csv"}).Lines()
	assert.Len(t, lines, 4)
}
