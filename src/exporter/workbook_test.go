package exporter

import (
	"UberInsight/src/processor"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	df := dashboardFrame(t, "pickup_dt,borough,pickups,temp,pcp01,pcp06,pcp24\n"+
		"2023-01-05 09:00,A,5,40.5,0,0.1,0.2\n"+
		"2023-02-02 21:00,B,7,38,0.3,0.1,0.2\n")
	s, err := processor.Summarize(df)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report", "uber.xlsx")
	require.NoError(t, WriteWorkbook(path, df, s))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetDashboard, SheetMonthly, SheetDayPart, SheetWeekday, SheetRainfall}, f.GetSheetList())

	rows, err := f.GetRows(SheetDashboard)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportColumns, rows[0])
	assert.Equal(t, "Thurs", rows[1][7])

	monthly, err := f.GetRows(SheetMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 13)
	assert.Equal(t, "Feb", monthly[2][0])
	assert.Equal(t, "7", monthly[2][1])

	weekdays, err := f.GetRows(SheetWeekday)
	require.NoError(t, err)
	assert.Equal(t, []string{"Thurs", "2"}, weekdays[4])
}

func TestWriteWorkbookMissingColumns(t *testing.T) {
	df := dashboardFrame(t, "pickup_dt,borough,pickups,temp,pcp01,pcp06,pcp24\n"+
		"2023-01-05 09:00,A,5,40,0,0,0\n")
	df = df.Drop(processor.ColDay)

	err := WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), df, processor.Summary{})
	assert.Error(t, err)
}
