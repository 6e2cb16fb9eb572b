package locator

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"projinfo/internal/model"
)

// officeOwnerPrefix Excel 打开文件时在同目录生成的占用标记文件前缀
const officeOwnerPrefix = "~$"

// Locator 候选文件定位器
type Locator struct {
	Recursive bool // 是否递归子目录（默认 true）
}

// New 创建定位器
func New(recursive bool) *Locator {
	return &Locator{Recursive: recursive}
}

// Candidates 按目录遍历顺序惰性产出候选文件；可重复调用，每次重新遍历
// 根目录不存在或不是目录时产出一个错误后结束；无法读取的子目录被跳过
func (l *Locator) Candidates(root string, categories []model.Category) iter.Seq2[model.CandidateFile, error] {
	return func(yield func(model.CandidateFile, error) bool) {
		info, err := os.Stat(root)
		if err != nil {
			yield(model.CandidateFile{}, fmt.Errorf("root folder: %w", err))
			return
		}
		if !info.IsDir() {
			yield(model.CandidateFile{}, fmt.Errorf("root folder %s is not a directory", root))
			return
		}
		if len(categories) == 0 {
			return
		}

		stop := errors.New("stop")
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if path != root && !l.Recursive {
					return fs.SkipDir
				}
				return nil
			}

			name := d.Name()
			if strings.HasPrefix(name, officeOwnerPrefix) {
				return nil
			}
			category, ok := model.CategoryForName(name, categories)
			if !ok {
				return nil
			}
			if !yield(model.CandidateFile{Path: path, Category: category}, nil) {
				return stop
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, stop) {
			yield(model.CandidateFile{}, walkErr)
		}
	}
}

// Locate 收集全部候选文件
func (l *Locator) Locate(root string, categories []model.Category) ([]model.CandidateFile, error) {
	files := []model.CandidateFile{}
	for f, err := range l.Candidates(root, categories) {
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// CountByCategory 按类别统计候选文件数
func CountByCategory(files []model.CandidateFile) map[model.Category]int {
	counts := make(map[model.Category]int, len(model.AllCategories))
	for _, f := range files {
		counts[f.Category]++
	}
	return counts
}
