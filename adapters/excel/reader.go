package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pbidesc/internal/errors"
	"pbidesc/models"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV metadata files
type DataReader struct {
	source   io.Reader
	name     string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader; the file type is chosen by the name's extension
func NewDataReader(source io.Reader, name string) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(name)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{source: source, name: name, fileType: fileType}
}

// Parse reads a metadata spreadsheet and validates the required columns
func Parse(source io.Reader, name string) (*models.Dataset, error) {
	return NewDataReader(source, name).ReadDataset()
}

// ReadFile parses the metadata spreadsheet at path
func ReadFile(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("file %s", path))
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// ReadDataset reads the sheet and maps it into metadata rows
func (r *DataReader) ReadDataset() (*models.Dataset, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return ToDataset(data, r.name)
}

// ReadData reads the first sheet into raw header-keyed rows
func (r *DataReader) ReadData() (*ExcelData, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.name)

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	return r.processRows(rows), nil
}

// readExcelRows reads every row of the workbook's first sheet
func (r *DataReader) readExcelRows() ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(r.source)
	if err != nil {
		return nil, errors.ParseError("input is not a valid Excel workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError("workbook contains no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.ParseError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	log.Printf("[DataReader] Sheet %q read in %.2fms (%d rows)",
		sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// readCSVRows reads CSV records; ragged rows are allowed
func (r *DataReader) readCSVRows() ([][]string, error) {
	reader := csv.NewReader(r.source)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.ParseError("input is not a valid CSV file", err)
	}
	return rows, nil
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) *ExcelData {
	if len(rows) == 0 {
		return &ExcelData{}
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		rowData := make(RawRowData)
		for j, cell := range rows[i] {
			// First occurrence of a duplicated header wins.
			if j < len(headers) {
				if _, seen := rowData[headers[j]]; !seen {
					rowData[headers[j]] = cell
				}
			}
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{Headers: headers, Rows: dataRows}
}

// ToDataset validates the headers and maps raw rows onto the metadata model.
// Columns other than the four required ones are dropped.
func ToDataset(data *ExcelData, sourceName string) (*models.Dataset, error) {
	if missing := MissingColumns(data.Headers); len(missing) > 0 {
		return nil, errors.MissingColumns(missing, models.RequiredColumns)
	}

	ds := &models.Dataset{
		SourceName: sourceName,
		Rows:       make([]models.Row, 0, len(data.Rows)),
	}
	for _, raw := range data.Rows {
		ds.Rows = append(ds.Rows, models.Row{
			TableName:     raw[models.ColTableName],
			ColumnName:    raw[models.ColColumnName],
			DataType:      raw[models.ColDataType],
			DAXExpression: raw[models.ColDAXExpression],
		})
	}
	return ds, nil
}

// MissingColumns returns the required headers absent from headers, in canonical order
func MissingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, required := range models.RequiredColumns {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
