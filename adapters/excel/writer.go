package excel

import (
	"fmt"
	"log"
	"os"
	"unicode/utf16"

	"pbidesc/internal/errors"
	"pbidesc/models"

	"github.com/xuri/excelize/v2"
)

// Serialize writes the dataset as a single "Descriptions" sheet.
// Every cell is written as text so values read back exactly as parsed.
// A value longer than the xlsx cell limit is a validation error rather than
// a truncated cell. Rows whose cells are all blank are written but dropped
// when the file is parsed again, and control characters that XML cannot
// hold (other than tab, newline and carriage return) read back as U+FFFD.
func Serialize(ds *models.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, OutputSheetName); err != nil {
		return nil, errors.Wrap(err, "failed to name output sheet")
	}

	sw, err := f.NewStreamWriter(OutputSheetName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sheet writer")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create header style")
	}

	if err := sw.SetColWidth(1, 3, 20); err != nil {
		return nil, errors.Wrap(err, "failed to size columns")
	}
	if err := sw.SetColWidth(4, 5, 60); err != nil {
		return nil, errors.Wrap(err, "failed to size columns")
	}

	header := make([]interface{}, len(models.OutputColumns))
	for i, name := range models.OutputColumns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, errors.Wrap(err, "failed to write header row")
	}

	for i, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		values := row.Values()
		cells := make([]interface{}, len(values))
		for j, v := range values {
			if n := cellLength(v); n > excelize.TotalCellChars {
				return nil, errors.ValidationError(fmt.Sprintf(
					"row %d column %s has %d characters; a cell holds at most %d",
					i+1, models.OutputColumns[j], n, excelize.TotalCellChars))
			}
			cells[j] = v
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, errors.Wrapf(err, "failed to write row %d", i+1)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, errors.Wrap(err, "failed to flush sheet")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode workbook")
	}
	log.Printf("[DataWriter] Serialized %d rows (%d bytes)", ds.Len(), buf.Len())
	return buf.Bytes(), nil
}

// WriteFile serializes the dataset to path
func WriteFile(path string, ds *models.Dataset) error {
	data, err := Serialize(ds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to write %s", path))
	}
	return nil
}

// cellLength counts UTF-16 code units, the unit the xlsx cell limit is measured in
func cellLength(value string) int {
	n := 0
	for _, r := range value {
		n += utf16.RuneLen(r)
	}
	return n
}
