package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// LabelHit 标签命中位置
type LabelHit struct {
	Label  string `json:"label"`
	Field  Field  `json:"field"`
	Cell   string `json:"cell"`   // 标签所在单元格
	Target string `json:"target"` // 同行右侧一列
}

// ScanLabels 扫描 sheet 中所有单元格，返回与标签文本精确相等的位置（行优先）
func ScanLabels(wb *excelize.File, sheet string, labels map[string]Field) ([]LabelHit, error) {
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return findLabels(rows, labels)
}

func findLabels(rows [][]string, labels map[string]Field) ([]LabelHit, error) {
	hits := []LabelHit{}
	for r, row := range rows {
		for c, value := range row {
			field, ok := labels[value]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			target, err := excelize.CoordinatesToCellName(c+2, r+1)
			if err != nil {
				// 标签位于最后一列，右侧无单元格
				continue
			}
			hits = append(hits, LabelHit{Label: value, Field: field, Cell: cell, Target: target})
		}
	}
	return hits, nil
}
