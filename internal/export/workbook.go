package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/reminders"
)

const (
	remindersSheet = "Reminders"
	documentsSheet = "Documents"
)

var (
	reminderHeader = []any{"Date", "Time", "Title", "Description", "Priority", "Status", "Source", "Document"}
	documentHeader = []any{"Title", "Category", "Event date", "Event time", "Expiry date", "Location", "Reference", "File"}
)

// BuildWorkbook writes reminders, sorted by due date, and a document index into an xlsx file.
func BuildWorkbook(docs []documents.Document, rems []reminders.Reminder) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", remindersSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(documentsSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E7FF"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	titles := make(map[string]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Metadata.Title
	}

	sorted := append([]reminders.Reminder(nil), rems...)
	reminders.SortByDue(sorted)
	rows := make([][]any, 0, len(sorted))
	for _, r := range sorted {
		status := "Open"
		if r.Completed {
			status = "Done"
		}
		rows = append(rows, []any{r.Date, r.Time, r.Title, r.Description, string(r.Priority), status, string(r.Source), titles[r.DocumentID]})
	}
	if err := writeSheet(f, remindersSheet, reminderHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, d := range docs {
		m := d.Metadata
		rows = append(rows, []any{m.Title, string(m.Category), m.EventDate, m.EventTime, m.ExpiryDate, m.Location, m.ReferenceNumber, d.FileName})
	}
	if err := writeSheet(f, documentsSheet, documentHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}
