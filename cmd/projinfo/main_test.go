package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"projinfo/internal/model"
	"projinfo/internal/service/excel"
	"projinfo/internal/updater"
)

// execute 运行根命令，配置与数据目录都在临时目录中
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PROJINFO_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("PROJINFO_LOG_DIR", filepath.Join(t.TempDir(), "logs"))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "config.toml")))
	err := cmd.Execute()
	return out.String(), err
}

func writeSubmittal(t *testing.T, path string) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	if err := wb.SetCellStr("Sheet1", "A5", "Project Name"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestRunCommand_UpdatesFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "MST-TS-001.xlsx")
	writeSubmittal(t, path)

	out, err := execute(t, "run", "--root", root, "--name", "Acme Tower", "--number", "24017", "--ts")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"Found 1 matching files", "[1/1] SUCCESS", "Updated 1/1 files.", "Log saved to:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	got, err := excel.ReadCells(path, "B5", "B6")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["B5"] != "Acme Tower" || got["B6"] != "24017" {
		t.Fatalf("unexpected cells: %v", got)
	}
}

func TestRunCommand_FailedFilesExitNonZero(t *testing.T) {
	root := t.TempDir()
	writeSubmittal(t, filepath.Join(root, "MST-TS-001.xlsx"))
	if err := os.WriteFile(filepath.Join(root, "~$MST-TS-001.xlsx"), []byte("owner"), 0644); err != nil {
		t.Fatalf("write owner file: %v", err)
	}

	out, err := execute(t, "run", "--root", root, "--name", "Acme", "--ts")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Fatalf("expected failure error, got %v\n%s", err, out)
	}
	if !strings.Contains(out, "Close them and run the update again.") {
		t.Fatalf("missing locked advice:\n%s", out)
	}
}

func TestRunCommand_NoMatchingFiles(t *testing.T) {
	out, err := execute(t, "run", "--root", t.TempDir(), "--es")
	if !errors.Is(err, updater.ErrNoMatchingFiles) {
		t.Fatalf("expected ErrNoMatchingFiles, got %v", err)
	}
	if !strings.Contains(out, "No matching Excel files found.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunCommand_RequiresCategory(t *testing.T) {
	_, err := execute(t, "run", "--root", t.TempDir())
	if !errors.Is(err, model.ErrNoCategory) {
		t.Fatalf("expected ErrNoCategory, got %v", err)
	}
}

func TestRunCommand_JobFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "MST-TS-009.xlsx")
	writeSubmittal(t, path)

	job := filepath.Join(t.TempDir(), "job.yaml")
	body := "project_name: From Job\nproject_number: J-1\nroot_folder: " + root + "\ncategories: [ts]\n"
	if err := os.WriteFile(job, []byte(body), 0644); err != nil {
		t.Fatalf("write job: %v", err)
	}

	// 显式参数覆盖 job 文件
	if out, err := execute(t, "run", "--job", job, "--number", "J-2"); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	got, err := excel.ReadCells(path, "B5", "B6")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["B5"] != "From Job" || got["B6"] != "J-2" {
		t.Fatalf("unexpected cells: %v", got)
	}
}

func TestLocateCommand(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"MST-TS-1.xlsx", "ES-1.xlsx", "other.xlsx"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	out, err := execute(t, "locate", "--root", root, "--ts", "--es")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !strings.Contains(out, "Found 2 matching files, Technical Submittal: 1, Equipment Schedule: 1.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "other.xlsx") {
		t.Fatalf("non-matching file listed:\n%s", out)
	}
}
