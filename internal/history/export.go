package history

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Sheet 导出表格中的一页
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// SheetOf 把历史记录转换为一页表格
func SheetOf[T any](name string, l *Log[T]) (Sheet, error) {
	records, err := l.LoadAll()
	if err != nil {
		return Sheet{}, err
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, l.codec.Encode(rec))
	}
	return Sheet{Name: name, Header: l.codec.Header(), Rows: rows}, nil
}

// ExportXLSX 每个 Sheet 写一页，写入 path
func ExportXLSX(path string, sheets ...Sheet) (err error) {
	if len(sheets) == 0 {
		return errors.New("no sheets to export")
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	defaultSheet := f.GetSheetName(0)
	for i, s := range sheets {
		idx, err := f.NewSheet(s.Name)
		if err != nil {
			return errors.Wrapf(err, "create sheet %s", s.Name)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeRow(f, s.Name, 1, s.Header); err != nil {
			return err
		}
		for r, row := range s.Rows {
			if err := writeRow(f, s.Name, r+2, row); err != nil {
				return err
			}
		}
	}
	if !containsSheet(sheets, defaultSheet) {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return errors.Wrap(err, "delete default sheet")
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func containsSheet(sheets []Sheet, name string) bool {
	for _, s := range sheets {
		if s.Name == name {
			return true
		}
	}
	return false
}
