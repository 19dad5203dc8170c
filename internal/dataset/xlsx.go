package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX extracts the header and rows of one worksheet. The first sheet is
// used when sheetName is empty.
func readXLSX(path, sheetName string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	target := sheets[0]
	if sheetName != "" {
		target = ""
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				target = s
				break
			}
		}
		if target == "" {
			return nil, nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}

	all, err := f.GetRows(target)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", target, err)
	}
	// leading blank rows are not a header
	for len(all) > 0 && isBlankRow(all[0]) {
		all = all[1:]
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	header := normalizeHeader(all[0])
	rows := make([][]string, 0, len(all)-1)
	for _, r := range all[1:] {
		if isBlankRow(r) {
			continue
		}
		rows = append(rows, fitRow(r, len(header)))
	}
	return header, rows, nil
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
