package excel

// RawRowData represents a row of raw sheet data keyed by header
type RawRowData map[string]string

// ExcelData represents a sheet before it is mapped to metadata rows
type ExcelData struct {
	Headers []string     // Column headers, trimmed
	Rows    []RawRowData // Data rows, blank rows dropped
}

// Output file properties offered for download
const (
	OutputFilename  = "metadata_with_descriptions.xlsx"
	OutputSheetName = "Descriptions"
	MimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)
