package models

import "strings"

// Spreadsheet column headers
const (
	ColTableName     = "TableName"
	ColColumnName    = "ColumnName"
	ColDataType      = "DataType"
	ColDAXExpression = "DAXExpression"
	ColDescription   = "Description"
)

// RequiredColumns lists the input headers in canonical order
var RequiredColumns = []string{ColTableName, ColColumnName, ColDataType, ColDAXExpression}

// OutputColumns lists the headers written to the result sheet
var OutputColumns = []string{ColTableName, ColColumnName, ColDataType, ColDAXExpression, ColDescription}

// Row is one Power BI metadata record
type Row struct {
	TableName     string `json:"table_name"`
	ColumnName    string `json:"column_name"`
	DataType      string `json:"data_type"`
	DAXExpression string `json:"dax_expression"`

	Description    string `json:"description,omitempty"`
	HasDescription bool   `json:"has_description"`
}

// IsMeasure reports whether the row carries a DAX expression
func (r Row) IsMeasure() bool {
	return strings.TrimSpace(r.DAXExpression) != ""
}

// Kind returns "measure" or "column"
func (r Row) Kind() string {
	if r.IsMeasure() {
		return "measure"
	}
	return "column"
}

// SetDescription attaches a generated description
func (r *Row) SetDescription(description string) {
	r.Description = description
	r.HasDescription = true
}

// Values returns the row's cells in OutputColumns order
func (r Row) Values() []string {
	return []string{r.TableName, r.ColumnName, r.DataType, r.DAXExpression, r.Description}
}

// Dataset is an ordered sequence of rows; index i is spreadsheet data row i
type Dataset struct {
	SourceName string `json:"source_name"`
	Rows       []Row  `json:"rows"`
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Described reports whether every row has a generated description
func (d *Dataset) Described() bool {
	for _, row := range d.Rows {
		if !row.HasDescription {
			return false
		}
	}
	return true
}

// MeasureCount returns how many rows are measures
func (d *Dataset) MeasureCount() int {
	count := 0
	for _, row := range d.Rows {
		if row.IsMeasure() {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so callers can hand out snapshots
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	rows := make([]Row, len(d.Rows))
	copy(rows, d.Rows)
	return &Dataset{SourceName: d.SourceName, Rows: rows}
}
