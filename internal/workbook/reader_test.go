package workbook_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/leapstack-labs/leapsheet/internal/workbook"
)

// writeFixture builds a small workbook on disk and returns its path.
func writeFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Price"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", 5))
	require.NoError(t, f.SetCellFormula("Sheet1", "C1", "B1*2"))

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", bold))

	require.NoError(t, f.SetCellValue("Sheet1", "A3", "Summary"))
	require.NoError(t, f.MergeCell("Sheet1", "A3", "C3"))

	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name:     "UnitPrice",
		RefersTo: "Sheet1!$B$1",
	}))

	dv := excelize.NewDataValidation(true)
	dv.Sqref = "B5:B6"
	require.NoError(t, dv.SetDropList([]string{"Low", "Medium", "High"}))
	require.NoError(t, f.AddDataValidation("Sheet1", dv))
	require.NoError(t, f.SetCellValue("Sheet1", "B5", "Low"))

	_, err = f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Data", "A1", 42))

	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func cellByLocal(sheet *workbook.Sheet, local string) *workbook.Cell {
	for _, c := range sheet.Cells {
		if c.Local == local {
			return c
		}
	}
	return nil
}

func sheetByName(data *workbook.Data, name string) *workbook.Sheet {
	for _, s := range data.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func TestReadWorkbook(t *testing.T) {
	data, err := workbook.Read(writeFixture(t))
	require.NoError(t, err)

	assert.Equal(t, "fixture.xlsx", data.Name)
	require.Len(t, data.Sheets, 2)

	sheet := sheetByName(data, "Sheet1")
	require.NotNil(t, sheet)

	label := cellByLocal(sheet, "A1")
	require.NotNil(t, label)
	assert.Equal(t, "Price", label.Value)
	assert.True(t, label.Bold)
	assert.False(t, label.IsFormula)

	input := cellByLocal(sheet, "B1")
	require.NotNil(t, input)
	assert.Equal(t, "5", input.Value)
	assert.False(t, input.IsFormula)

	calc := cellByLocal(sheet, "C1")
	require.NotNil(t, calc)
	assert.True(t, calc.IsFormula)
	assert.Equal(t, "B1*2", calc.Formula)

	other := sheetByName(data, "Data")
	require.NotNil(t, other)
	require.NotNil(t, cellByLocal(other, "A1"))
}

func TestReadMergedRanges(t *testing.T) {
	data, err := workbook.Read(writeFixture(t))
	require.NoError(t, err)

	sheet := sheetByName(data, "Sheet1")
	require.Len(t, sheet.MergedRanges, 1)
	assert.Equal(t, "A3:C3", sheet.MergedRanges[0].Ref)
	assert.Equal(t, "A3", sheet.MergedRanges[0].Anchor)
}

func TestReadNamedRanges(t *testing.T) {
	data, err := workbook.Read(writeFixture(t))
	require.NoError(t, err)

	require.Len(t, data.NamedRanges, 1)
	assert.Equal(t, "UnitPrice", data.NamedRanges[0].Name)
	assert.Equal(t, "Sheet1!$B$1", data.NamedRanges[0].RefersTo)
}

func TestReadValidations(t *testing.T) {
	data, err := workbook.Read(writeFixture(t))
	require.NoError(t, err)

	sheet := sheetByName(data, "Sheet1")
	require.Len(t, sheet.Validations, 1)
	v := sheet.Validations[0]
	assert.Equal(t, "list", v.Type)
	assert.Equal(t, []string{"B5:B6"}, v.Ranges)
	assert.Equal(t, "Low,Medium,High", v.Formula1)
}

func TestReadPlainWorkbookHasNoMacros(t *testing.T) {
	data, err := workbook.Read(writeFixture(t))
	require.NoError(t, err)

	assert.False(t, data.HasMacros)
	assert.Empty(t, data.MacroNames)
}

func TestReadMissingFile(t *testing.T) {
	_, err := workbook.Read(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}
