package excel

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"projinfo/internal/model"
)

const (
	reasonNoLabels = "no project labels found"
	reasonNoValues = "no values to write"
)

// Options 单元格更新选项
type Options struct {
	ESPolicy    ESPolicy
	BlankPolicy BlankPolicy
	Logger      *zap.Logger
}

// Updater 单元格更新器：打开工作簿，按类别规则写入活动 sheet，原地保存
type Updater struct {
	esPolicy    ESPolicy
	blankPolicy BlankPolicy
	logger      *zap.Logger
}

// NewUpdater 创建更新器
func NewUpdater(opts Options) *Updater {
	u := &Updater{
		esPolicy:    opts.ESPolicy,
		blankPolicy: opts.BlankPolicy,
		logger:      opts.Logger,
	}
	if u.esPolicy == "" {
		u.esPolicy = ESPolicyKeyword
	}
	if u.blankPolicy == "" {
		u.blankPolicy = BlankClear
	}
	if u.logger == nil {
		u.logger = zap.NewNop()
	}
	return u
}

// ESPolicy 当前设备清单策略
func (u *Updater) ESPolicy() ESPolicy { return u.esPolicy }

// BlankPolicy 当前空字段策略
func (u *Updater) BlankPolicy() BlankPolicy { return u.blankPolicy }

// Update 更新单个文件；任何错误都以结果返回，不会中断调用方
func (u *Updater) Update(f model.CandidateFile, req model.UpdateRequest) model.FileOutcome {
	if owner, ok := ownerFile(f.Path); ok {
		return model.Failed(f, model.ErrorKindLocked,
			fmt.Errorf("%w (owner file %s present)", ErrLocked, filepath.Base(owner)))
	}

	wb, err := excelize.OpenFile(f.Path)
	if err != nil {
		kind, err := classify(err, false)
		return model.Failed(f, kind, err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	if sheet == "" {
		return model.Failed(f, model.ErrorKindMalformed, errors.New("workbook has no active sheet"))
	}

	writes, skipReason, err := u.plan(wb, sheet, f.Category, req)
	if err != nil {
		return model.Failed(f, model.ErrorKindMalformed, err)
	}
	if len(writes) == 0 {
		return model.Skipped(f, skipReason)
	}

	for _, w := range writes {
		if err := wb.SetCellStr(sheet, w.Cell, w.Value); err != nil {
			return model.Failed(f, model.ErrorKindWrite, fmt.Errorf("set %s!%s: %w", sheet, w.Cell, err))
		}
		u.logger.Debug("cell written",
			zap.String("path", f.Path),
			zap.String("sheet", sheet),
			zap.String("cell", w.Cell),
			zap.String("field", string(w.Field)))
	}

	if err := wb.Save(); err != nil {
		kind, err := classify(err, true)
		return model.Failed(f, kind, err)
	}

	return model.Updated(f, cellNames(writes))
}

// plan 计算需要写入的单元格；返回空列表时附带跳过原因
func (u *Updater) plan(wb *excelize.File, sheet string, category model.Category, req model.UpdateRequest) ([]cellWrite, string, error) {
	var writes []cellWrite

	switch category {
	case model.CategoryTechnicalSubmittal:
		writes = fixedWrites(technicalSubmittalCells, req)
	case model.CategoryEquipmentSchedule:
		if u.esPolicy == ESPolicyFixed {
			writes = fixedWrites(equipmentScheduleCells, req)
			break
		}
		hits, err := ScanLabels(wb, sheet, equipmentScheduleLabels)
		if err != nil {
			return nil, "", err
		}
		if len(hits) == 0 {
			return nil, reasonNoLabels, nil
		}
		for _, h := range hits {
			writes = append(writes, cellWrite{Cell: h.Target, Field: h.Field, Value: h.Field.Value(req)})
		}
	default:
		return nil, "", fmt.Errorf("unsupported category %q", category)
	}

	if u.blankPolicy == BlankKeep {
		writes = dropBlank(writes)
		if len(writes) == 0 {
			return nil, reasonNoValues, nil
		}
	}
	return writes, "", nil
}

// ReadCells 读取活动 sheet 上若干单元格的原始值
func ReadCells(path string, cells ...string) (map[string]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	out := make(map[string]string, len(cells))
	for _, cell := range cells {
		v, err := wb.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cell, err)
		}
		out[cell] = v
	}
	return out, nil
}
