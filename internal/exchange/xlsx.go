package exchange

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/guild-ledger/internal/model"
)

const summarySheet = "Summary"

func exportXLSX(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := setRow(f, summarySheet, 1, []any{"Date", "Module", "Participants"}); err != nil {
		return err
	}
	for i, rec := range doc.Records {
		row := []any{rec.Key().String(), string(rec.Module()), rec.ParticipantCount()}
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}

	for _, list := range listsOf(doc.Module) {
		sheet := string(list)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
		if err := setRow(f, sheet, 1, []any{"Date", "Position", "Name"}); err != nil {
			return err
		}
		rowNo := 2
		for _, rec := range doc.Records {
			for i, name := range rec.Names(list) {
				if err := setRow(f, sheet, rowNo, []any{rec.Key().String(), i + 1, name}); err != nil {
					return err
				}
				rowNo++
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNo, err)
	}
	return nil
}

func listsOf(module model.Module) []model.ListName {
	rec, err := model.NewRecord(module)
	if err != nil {
		return nil
	}
	return rec.Lists()
}
