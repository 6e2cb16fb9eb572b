package excel

import (
	"fmt"
	"strings"

	"projinfo/internal/model"
)

// ESPolicy 设备清单单元格定位策略
type ESPolicy string

const (
	ESPolicyKeyword ESPolicy = "keyword" // 按标签文本定位，写入右侧单元格
	ESPolicyFixed   ESPolicy = "fixed"   // 固定地址 H2/H3/J4
)

// BlankPolicy 空字段处理策略
type BlankPolicy string

const (
	BlankClear BlankPolicy = "clear" // 空字段写入空字符串（清空原值）
	BlankKeep  BlankPolicy = "keep"  // 空字段不写，保留原值
)

// ParseESPolicy 解析设备清单策略，空串返回默认 keyword
func ParseESPolicy(s string) (ESPolicy, error) {
	switch ESPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ESPolicyKeyword:
		return ESPolicyKeyword, nil
	case ESPolicyFixed:
		return ESPolicyFixed, nil
	}
	return "", fmt.Errorf("unknown es_policy %q (want keyword or fixed)", s)
}

// ParseBlankPolicy 解析空字段策略，空串返回默认 clear
func ParseBlankPolicy(s string) (BlankPolicy, error) {
	switch BlankPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BlankClear:
		return BlankClear, nil
	case BlankKeep:
		return BlankKeep, nil
	}
	return "", fmt.Errorf("unknown blank_policy %q (want clear or keep)", s)
}

// Field 请求中的可写字段
type Field string

const (
	FieldProjectName   Field = "project_name"
	FieldProjectNumber Field = "project_number"
	FieldIssuedFor     Field = "issued_for"
)

// Value 从请求中取字段值
func (f Field) Value(req model.UpdateRequest) string {
	switch f {
	case FieldProjectName:
		return req.ProjectName
	case FieldProjectNumber:
		return req.ProjectNumber
	case FieldIssuedFor:
		return req.IssuedFor
	}
	return ""
}

type fixedCell struct {
	Cell  string
	Field Field
}

// 技术提交文件：B5 项目名称，B6 项目编号
var technicalSubmittalCells = []fixedCell{
	{Cell: "B5", Field: FieldProjectName},
	{Cell: "B6", Field: FieldProjectNumber},
}

// 设备清单固定地址
var equipmentScheduleCells = []fixedCell{
	{Cell: "H2", Field: FieldProjectNumber},
	{Cell: "H3", Field: FieldProjectName},
	{Cell: "J4", Field: FieldIssuedFor},
}

// 设备清单标签（精确匹配）
var equipmentScheduleLabels = map[string]Field{
	"Project No.":  FieldProjectNumber,
	"Project Name": FieldProjectName,
	"Issued For":   FieldIssuedFor,
}

// cellWrite 一次单元格写入
type cellWrite struct {
	Cell  string
	Field Field
	Value string
}

func fixedWrites(cells []fixedCell, req model.UpdateRequest) []cellWrite {
	out := make([]cellWrite, 0, len(cells))
	for _, c := range cells {
		out = append(out, cellWrite{Cell: c.Cell, Field: c.Field, Value: c.Field.Value(req)})
	}
	return out
}

func dropBlank(writes []cellWrite) []cellWrite {
	out := writes[:0]
	for _, w := range writes {
		if w.Value != "" {
			out = append(out, w)
		}
	}
	return out
}

func cellNames(writes []cellWrite) []string {
	out := make([]string, 0, len(writes))
	for _, w := range writes {
		out = append(out, w.Cell)
	}
	return out
}
