package export

import (
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// SheetName is the worksheet holding exported history.
const SheetName = "History"

// WriteXLSX writes records to a single-sheet workbook.
func WriteXLSX(w io.Writer, records []model.AssessmentRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: create sheet")
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return eris.Wrap(err, "export: delete default sheet")
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return eris.Wrap(err, "export: header style")
	}

	for col, name := range Columns {
		if err := setCell(f, col+1, 1, name); err != nil {
			return err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, first, last, headerStyle); err != nil {
		return eris.Wrap(err, "export: apply header style")
	}
	if err := f.SetColWidth(SheetName, "A", "A", 32); err != nil {
		return eris.Wrap(err, "export: set column width")
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(rec.Tier),
			rec.Probability,
			rec.Age,
			rec.WeightKg,
			rec.HeightCm,
		}
		if rec.BMI != nil {
			values = append(values, *rec.BMI)
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return eris.Wrap(err, "export: cell name")
	}
	if s, ok := value.(string); ok {
		return eris.Wrapf(f.SetCellStr(SheetName, cell, s), "export: set %s", cell)
	}
	return eris.Wrapf(f.SetCellValue(SheetName, cell, value), "export: set %s", cell)
}

// ReadXLSX reads history back from a workbook written by WriteXLSX. It uses
// the History sheet, or the first sheet when there is none, and expects a
// header row.
func ReadXLSX(path string, opts ...ReadOption) ([]model.AssessmentRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has no sheets")
	}

	sheet, ok := f.Sheet[SheetName]
	if !ok {
		sheet = f.Sheets[0]
	}
	return readSheet(sheet, newReadConfig(opts))
}

func readSheet(sheet *xlsx.Sheet, rc readConfig) ([]model.AssessmentRecord, error) {
	if len(sheet.Rows) == 0 {
		return nil, eris.New("export: sheet is empty")
	}

	idx := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		idx[cell.String()] = i
	}
	for _, col := range Columns[:len(Columns)-1] {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("export: sheet missing column %q", col)
		}
	}

	var out []model.AssessmentRecord
	for n, row := range sheet.Rows[1:] {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, eris.Wrapf(err, "export: sheet row %d", n+2)
		}
		out = append(out, rec)
	}
	return out, validate(out, rc)
}

func parseRow(row *xlsx.Row, idx map[string]int) (model.AssessmentRecord, error) {
	var rec model.AssessmentRecord

	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row.Cells) || row.Cells[i] == nil {
			return ""
		}
		return row.Cells[i].Value
	}

	t, err := time.Parse(time.RFC3339Nano, get("created_at"))
	if err != nil {
		return rec, eris.Wrap(err, "created_at")
	}
	rec.CreatedAt = t
	rec.Tier = model.Tier(get("tier"))

	if rec.Probability, err = strconv.ParseFloat(get("probability"), 64); err != nil {
		return rec, eris.Wrap(err, "probability")
	}
	if rec.Age, err = strconv.Atoi(get("age")); err != nil {
		return rec, eris.Wrap(err, "age")
	}
	if rec.WeightKg, err = strconv.ParseFloat(get("weight_kg"), 64); err != nil {
		return rec, eris.Wrap(err, "weight_kg")
	}
	if rec.HeightCm, err = strconv.ParseFloat(get("height_cm"), 64); err != nil {
		return rec, eris.Wrap(err, "height_cm")
	}
	if s := get("bmi"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, eris.Wrap(err, "bmi")
		}
		rec.BMI = &v
	}
	return rec, nil
}
