package workbook

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
)

// Read extracts the compiler's input facts from a workbook file. A file
// that cannot be opened or walked is the one fatal failure mode of the
// whole pipeline; per-cell problems (unreadable style, missing formula)
// degrade to zero values instead.
func Read(path string) (*Data, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	data := &Data{Name: filepath.Base(path)}

	for _, name := range f.GetDefinedName() {
		data.NamedRanges = append(data.NamedRanges, NamedRange{
			Name:     name.Name,
			RefersTo: name.RefersTo,
			Scope:    name.Scope,
		})
	}

	for _, sheetName := range f.GetSheetList() {
		sheet, err := readSheet(f, sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
		}
		data.Sheets = append(data.Sheets, sheet)
	}

	data.HasMacros, data.MacroNames = probeMacros(path)

	return data, nil
}

func readSheet(f *excelize.File, sheetName string) (*Sheet, error) {
	sheet := &Sheet{Name: sheetName}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			local, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			formula, _ := f.GetCellFormula(sheetName, local)
			if value == "" && formula == "" {
				continue
			}
			c := &Cell{
				Local:     local,
				Value:     value,
				Formula:   formula,
				IsFormula: formula != "",
			}
			fillStyle(f, sheetName, local, c)
			sheet.Cells = append(sheet.Cells, c)
		}
	}

	merged, err := f.GetMergeCells(sheetName)
	if err == nil {
		for _, m := range merged {
			sheet.MergedRanges = append(sheet.MergedRanges, MergedRange{
				Ref:    m.GetStartAxis() + ":" + m.GetEndAxis(),
				Anchor: m.GetStartAxis(),
			})
		}
	}

	validations, err := f.GetDataValidations(sheetName)
	if err == nil {
		for _, dv := range validations {
			if dv == nil {
				continue
			}
			sheet.Validations = append(sheet.Validations, Validation{
				Ranges:     strings.Fields(dv.Sqref),
				Type:       dv.Type,
				Operator:   dv.Operator,
				Formula1:   strings.Trim(dv.Formula1, "\""),
				Formula2:   strings.Trim(dv.Formula2, "\""),
				AllowBlank: dv.AllowBlank,
			})
		}
	}

	condFmts, err := f.GetConditionalFormats(sheetName)
	if err == nil {
		for rangeRef, opts := range condFmts {
			for _, opt := range opts {
				sheet.ConditionalFormats = append(sheet.ConditionalFormats, ConditionalFormat{
					Range:    rangeRef,
					RuleType: opt.Type,
					Criteria: opt.Criteria,
					Value:    opt.Value,
				})
			}
		}
	}

	pivots, err := f.GetPivotTables(sheetName)
	if err == nil {
		for _, pt := range pivots {
			sheet.PivotTables = append(sheet.PivotTables, PivotTable{
				Name:         pt.Name,
				SourceRange:  pt.DataRange,
				RowFields:    pivotFieldNames(pt.Rows),
				ColumnFields: pivotFieldNames(pt.Columns),
				ValueFields:  pivotFieldNames(pt.Data),
				FilterFields: pivotFieldNames(pt.Filter),
			})
		}
	}

	return sheet, nil
}

// fillStyle copies formatting facts onto the cell; style lookup failures
// leave the zero values in place.
func fillStyle(f *excelize.File, sheetName, local string, c *Cell) {
	styleID, err := f.GetCellStyle(sheetName, local)
	if err != nil {
		return
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return
	}
	if style.Font != nil {
		c.Bold = style.Font.Bold
		c.Italic = style.Font.Italic
		c.FontColor = style.Font.Color
	}
	if len(style.Fill.Color) > 0 {
		c.FillColor = style.Fill.Color[0]
	}
	if style.CustomNumFmt != nil {
		c.NumberFormat = *style.CustomNumFmt
	} else if style.NumFmt != 0 {
		c.NumberFormat = strconv.Itoa(style.NumFmt)
	}
}

func pivotFieldNames(fields []excelize.PivotTableField) []string {
	var names []string
	for _, f := range fields {
		if f.Data != "" {
			names = append(names, f.Data)
		} else if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// probeMacros checks the OOXML container for an embedded VBA project and,
// when present, lists its module names from the compound-file directory.
// excelize has no VBA read API, so the zip entry is inspected directly.
func probeMacros(path string) (bool, []string) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false, nil
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.Name != "xl/vbaProject.bin" {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return true, nil
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return true, nil
		}
		return true, vbaModuleNames(raw)
	}
	return false, nil
}

// vbaModuleNames lists module stream names from a vbaProject.bin payload.
func vbaModuleNames(raw []byte) []string {
	doc, err := mscfb.New(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	var names []string
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		name := entry.Name
		switch name {
		case "VBA", "dir", "PROJECT", "PROJECTwm", "PROJECTlk", "_VBA_PROJECT", "ThisWorkbook":
			continue
		}
		if strings.HasPrefix(name, "__SRP_") || strings.HasPrefix(name, "Sheet") {
			continue
		}
		names = append(names, name)
	}
	return names
}
