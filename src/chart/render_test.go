package chart

import (
	"UberInsight/src/processor"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() processor.Summary {
	s := processor.Summary{Rows: 2}
	for _, m := range processor.Months {
		s.Monthly = append(s.Monthly, processor.MonthTotal{Month: m, Label: m.String()})
	}
	s.Monthly[0].Pickups, s.Monthly[0].Rows = 12, 2

	for _, p := range processor.DayParts {
		s.DayParts = append(s.DayParts, processor.DayPartShare{Part: p, Label: p.String()})
	}
	s.DayParts[0].Count, s.DayParts[0].Percent = 2, 100

	for _, label := range []string{"Rainfall 1hr", "Rainfall 6hr", "Rainfall 24hr"} {
		s.Rainfall = append(s.Rainfall, processor.RainfallSeries{
			Label:  label,
			Points: []processor.RainfallPoint{{Rainfall: 0, Pickups: 5}, {Rainfall: 0.2, Pickups: 7}},
		})
	}

	for _, d := range processor.Weekdays {
		s.Weekdays = append(s.Weekdays, processor.WeekdayCount{Day: d, Label: d.String()})
	}
	s.Weekdays[3].Count = 2
	return s
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSummary()))

	html := buf.String()
	for _, want := range []string{
		TitleMonthly, TitleRainfall, TitleWeekdays,
		"Morning vs Afternoon",
		"Rainfall 1hr", "Rainfall 6hr", "Rainfall 24hr",
		"Thurs", "Dec",
	} {
		assert.Contains(t, html, want)
	}
}

func TestRenderFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "nested", "uber.html")
	require.NoError(t, RenderFile(path, sampleSummary()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
