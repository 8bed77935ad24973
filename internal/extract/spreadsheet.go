package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
)

type sheet struct {
	name string
	rows [][]string
}

// readWorkbook returns every sheet of an xlsx/xlsm or legacy xls workbook, in workbook order.
func readWorkbook(name string, content []byte) ([]sheet, error) {
	if constants.IsLegacyXLS(name) {
		return readXLS(content)
	}
	return readXLSX(content)
}

func readXLSX(content []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		out = append(out, sheet{name: name, rows: rows})
	}
	return out, nil
}

func readXLS(content []byte) ([]sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	var out []sheet
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sh, err := wb.GetSheet(i)
		if err != nil {
			return nil, fmt.Errorf("sheet %d: %w", i, err)
		}
		if sh == nil {
			continue
		}
		var rows [][]string
		for _, row := range sh.GetRows() {
			rows = append(rows, xlsRowValues(row.GetCols()))
		}
		out = append(out, sheet{name: sh.GetName(), rows: rows})
	}
	return out, nil
}

// xlsCell is the part of structure.CellData the row renderer reads.
type xlsCell interface {
	GetString() string
	GetFloat64() float64
	GetInt64() int64
	GetType() string
}

func xlsRowValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, xlsCellValue(col))
	}
	return out
}

// xlsCellValue renders one cell. Numeric records (Number, Rk, MulRk) render their
// value even when it is zero; blanks render empty.
func xlsCellValue(c xlsCell) string {
	if val := c.GetString(); val != "" {
		return val
	}
	if !isNumericXLSRecord(c.GetType()) {
		return ""
	}
	if num := c.GetFloat64(); num != 0 {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
	return strconv.FormatInt(c.GetInt64(), 10)
}

func isNumericXLSRecord(typ string) bool {
	name := typ[strings.LastIndexByte(typ, '.')+1:]
	switch name {
	case "Number", "Rk", "MulRk":
		return true
	}
	return false
}

// renderSheets formats each sheet as "Sheet: <name>" followed by its tab-separated rows.
func renderSheets(sheets []sheet) string {
	blocks := make([]string, 0, len(sheets))
	for _, sh := range sheets {
		var b strings.Builder
		b.WriteString("Sheet: ")
		b.WriteString(sh.name)
		b.WriteByte('\n')
		for i, row := range sh.rows {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.Join(row, "\t"))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}
