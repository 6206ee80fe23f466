package excel

import (
	"bytes"
	"strings"
	"testing"

	"pbidesc/internal/errors"
	"pbidesc/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook creates an in-memory xlsx with the given rows on its first sheet
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"TableName", "ColumnName", "DataType", "DAXExpression"},
		{"Sales", "Revenue", "Currency", ""},
		{"Sales", "TotalRevenue", "", "SUM(Sales[Revenue])"},
	})

	ds, err := Parse(bytes.NewReader(data), "meta.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "meta.xlsx", ds.SourceName)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, models.Row{TableName: "Sales", ColumnName: "Revenue", DataType: "Currency"}, ds.Rows[0])
	assert.Equal(t, "SUM(Sales[Revenue])", ds.Rows[1].DAXExpression)
	assert.True(t, ds.Rows[1].IsMeasure())
	assert.False(t, ds.Rows[0].HasDescription)
}

func TestParseAnyColumnOrderAndExtraColumns(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Owner", "DAXExpression", " ColumnName ", "DataType", "TableName"},
		{"bi-team", "COUNTROWS(Orders)", "OrderCount", "Int64", "Orders"},
	})

	ds, err := Parse(bytes.NewReader(data), "meta.xlsx")
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, models.Row{
		TableName:     "Orders",
		ColumnName:    "OrderCount",
		DataType:      "Int64",
		DAXExpression: "COUNTROWS(Orders)",
	}, ds.Rows[0])
}

func TestParseMissingColumns(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"TableName", "ColumnName"},
		{"Sales", "Revenue"},
	})

	_, err := Parse(bytes.NewReader(data), "meta.xlsx")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.Equal(t, []string{"DataType", "DAXExpression"}, errors.MissingColumnNames(err))
	assert.Contains(t, err.Error(), "DataType")
	assert.Contains(t, err.Error(), "DAXExpression")
}

func TestParseEachMissingColumnIsNamed(t *testing.T) {
	for _, dropped := range models.RequiredColumns {
		t.Run(dropped, func(t *testing.T) {
			var header []interface{}
			for _, col := range models.RequiredColumns {
				if col != dropped {
					header = append(header, col)
				}
			}
			data := buildWorkbook(t, [][]interface{}{header})

			_, err := Parse(bytes.NewReader(data), "meta.xlsx")
			require.Error(t, err)
			assert.Equal(t, []string{dropped}, errors.MissingColumnNames(err))
		})
	}
}

func TestParseEmptySheetIsValidationError(t *testing.T) {
	data := buildWorkbook(t, nil)

	_, err := Parse(bytes.NewReader(data), "empty.xlsx")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.Equal(t, models.RequiredColumns, errors.MissingColumnNames(err))
}

func TestParseHeaderOnly(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"TableName", "ColumnName", "DataType", "DAXExpression"},
	})

	ds, err := Parse(bytes.NewReader(data), "meta.xlsx")
	require.NoError(t, err)
	assert.Zero(t, ds.Len())
}

func TestParseGarbageIsParseError(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not a zip archive"), "meta.xlsx")
	require.Error(t, err)
	assert.Equal(t, errors.CodeParseError, errors.GetCode(err))
}

func TestParseSkipsBlankRows(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"TableName", "ColumnName", "DataType", "DAXExpression"},
		{"A", "a1", "Text", ""},
		{"", "", "", ""},
		{"B", "b1", "Int64", ""},
	})

	ds, err := Parse(bytes.NewReader(data), "meta.xlsx")
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "a1", ds.Rows[0].ColumnName)
	assert.Equal(t, "b1", ds.Rows[1].ColumnName)
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffTableName,ColumnName,DataType,DAXExpression\n" +
		"Sales,Revenue,Currency,\n" +
		"Sales,Margin,,\"DIVIDE([Profit], [Revenue])\"\n"

	ds, err := Parse(strings.NewReader(input), "meta.CSV")
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "Currency", ds.Rows[0].DataType)
	assert.Equal(t, "DIVIDE([Profit], [Revenue])", ds.Rows[1].DAXExpression)
}

func TestParseMalformedCSV(t *testing.T) {
	_, err := Parse(strings.NewReader("TableName,\"ColumnName\n"), "meta.csv")
	require.Error(t, err)
	assert.Equal(t, errors.CodeParseError, errors.GetCode(err))
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile("/nonexistent/meta.xlsx")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestMissingColumnsOrder(t *testing.T) {
	assert.Equal(t, []string{"TableName", "DAXExpression"}, MissingColumns([]string{"DataType", "ColumnName"}))
	assert.Empty(t, MissingColumns(models.RequiredColumns))
}
