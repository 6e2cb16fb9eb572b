package model

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoRootFolder = errors.New("root folder is required")
	ErrNoCategory   = errors.New("select at least one file type to update")
)

// UpdateRequest 一次更新任务的输入，触发时构造一次，运行期间不可变
type UpdateRequest struct {
	ProjectName   string     `json:"projectName"`
	ProjectNumber string     `json:"projectNumber"`
	IssuedFor     string     `json:"issuedFor"` // 仅设备清单使用
	RootFolder    string     `json:"rootFolder"`
	Categories    []Category `json:"categories"`
}

// Normalize 去除首尾空白、去重类别；未启用设备清单时清空 IssuedFor
func (r UpdateRequest) Normalize() UpdateRequest {
	out := UpdateRequest{
		ProjectName:   strings.TrimSpace(r.ProjectName),
		ProjectNumber: strings.TrimSpace(r.ProjectNumber),
		IssuedFor:     strings.TrimSpace(r.IssuedFor),
		RootFolder:    strings.TrimSpace(r.RootFolder),
	}

	seen := make(map[Category]bool, len(r.Categories))
	for _, c := range AllCategories {
		for _, want := range r.Categories {
			if want == c && !seen[c] {
				seen[c] = true
				out.Categories = append(out.Categories, c)
			}
		}
	}

	if !out.Enabled(CategoryEquipmentSchedule) {
		out.IssuedFor = ""
	}
	return out
}

// Validate 校验必填项
func (r UpdateRequest) Validate() error {
	if strings.TrimSpace(r.RootFolder) == "" {
		return ErrNoRootFolder
	}
	if len(r.Categories) == 0 {
		return ErrNoCategory
	}
	for _, c := range r.Categories {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}

// Enabled 类别是否启用
func (r UpdateRequest) Enabled(c Category) bool {
	for _, e := range r.Categories {
		if e == c {
			return true
		}
	}
	return false
}

type requestFile struct {
	ProjectName   string   `yaml:"project_name"`
	ProjectNumber string   `yaml:"project_number"`
	IssuedFor     string   `yaml:"issued_for"`
	RootFolder    string   `yaml:"root_folder"`
	Categories    []string `yaml:"categories"`
}

// LoadRequestFile 从 YAML 任务文件读取请求
//
//	project_name: Harbour Tower
//	project_number: "24017"
//	issued_for: For Approval
//	root_folder: D:/Projects/24017/Submittals
//	categories: [ts, es]
func LoadRequestFile(path string) (UpdateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UpdateRequest{}, fmt.Errorf("read job file: %w", err)
	}

	var raw requestFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return UpdateRequest{}, fmt.Errorf("parse job file %s: %w", path, err)
	}

	req := UpdateRequest{
		ProjectName:   raw.ProjectName,
		ProjectNumber: raw.ProjectNumber,
		IssuedFor:     raw.IssuedFor,
		RootFolder:    raw.RootFolder,
	}
	for _, s := range raw.Categories {
		c, err := ParseCategory(s)
		if err != nil {
			return UpdateRequest{}, fmt.Errorf("job file %s: %w", path, err)
		}
		req.Categories = append(req.Categories, c)
	}
	return req.Normalize(), nil
}
