package prompt

import (
	"fmt"

	"pbidesc/models"
)

const (
	measureTemplate = "Generate a user-friendly description for the measure named '%s' with the following DAX expression:\n%s"
	columnTemplate  = "Generate a user-friendly description for the column named '%s' with data type '%s'."
)

// Build creates the generation prompt for a metadata row.
// Measures embed the DAX text verbatim; plain columns embed the data type.
func Build(row models.Row) string {
	if row.IsMeasure() {
		return fmt.Sprintf(measureTemplate, row.ColumnName, row.DAXExpression)
	}
	return fmt.Sprintf(columnTemplate, row.ColumnName, row.DataType)
}

// BuildAll returns one prompt per row, in dataset order
func BuildAll(ds *models.Dataset) []string {
	prompts := make([]string, 0, ds.Len())
	for _, row := range ds.Rows {
		prompts = append(prompts, Build(row))
	}
	return prompts
}
