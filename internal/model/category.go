package model

import (
	"fmt"
	"strings"
)

// Category 文档类别（由文件名前缀决定）
type Category string

const (
	CategoryTechnicalSubmittal Category = "ts" // 技术提交文件 MST-TS*
	CategoryEquipmentSchedule  Category = "es" // 设备清单 ES-*
)

// XLSXSuffix 候选文件必须的后缀（区分大小写）
const XLSXSuffix = ".xlsx"

// AllCategories 全部类别，顺序即界面展示顺序
var AllCategories = []Category{CategoryTechnicalSubmittal, CategoryEquipmentSchedule}

// Prefix 文件名前缀
func (c Category) Prefix() string {
	switch c {
	case CategoryTechnicalSubmittal:
		return "MST-TS"
	case CategoryEquipmentSchedule:
		return "ES-"
	}
	return ""
}

// Label 展示名称
func (c Category) Label() string {
	switch c {
	case CategoryTechnicalSubmittal:
		return "Technical Submittal"
	case CategoryEquipmentSchedule:
		return "Equipment Schedule"
	}
	return string(c)
}

// Valid 是否为已知类别
func (c Category) Valid() bool {
	return c.Prefix() != ""
}

// ParseCategory 解析类别，接受 "ts"/"es" 以及展示名称
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ts", "technical_submittal", "technical submittal", "mst-ts":
		return CategoryTechnicalSubmittal, nil
	case "es", "equipment_schedule", "equipment schedule", "es-":
		return CategoryEquipmentSchedule, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// CategoryForName 按文件名判定类别；不属于任何启用类别时返回 false
// 前缀 "MST-TS" 与 "ES-" 互不重叠，因此最多匹配一个类别
func CategoryForName(name string, enabled []Category) (Category, bool) {
	if !strings.HasSuffix(name, XLSXSuffix) {
		return "", false
	}
	for _, c := range enabled {
		if p := c.Prefix(); p != "" && strings.HasPrefix(name, p) {
			return c, true
		}
	}
	return "", false
}
