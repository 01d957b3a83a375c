package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"tlmscope/internal/telemetry"
)

// WriteCSV writes tlm as CSV with a Time column first.
func WriteCSV(w io.Writer, tlm telemetry.Tlm) error {
	t := Flatten(tlm)
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(Strings(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "tlm"

// WriteXLSX writes tlm as a single-sheet workbook. Numbers stay numeric
// and the Time column is stored as text.
func WriteXLSX(w io.Writer, tlm telemetry.Tlm) error {
	t := Flatten(tlm)
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for r, row := range t.Rows {
		cells := make([]any, len(row))
		copy(cells, row)
		if ts, ok := cells[0].(time.Time); ok {
			cells[0] = Strings([]any{ts})[0]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}
