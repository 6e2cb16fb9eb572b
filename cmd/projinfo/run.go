package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"projinfo/internal/model"
	"projinfo/internal/report"
	"projinfo/internal/service/locator"
	"projinfo/internal/updater"
)

// requestFlags run/locate 共用的表单参数
type requestFlags struct {
	job       string
	root      string
	name      string
	number    string
	issuedFor string
	ts        bool
	es        bool
}

func (f *requestFlags) register(cmd *cobra.Command, withValues bool) {
	cmd.Flags().StringVar(&f.root, "root", "", "Root folder to search")
	cmd.Flags().BoolVar(&f.ts, "ts", false, "Include Technical Submittal files (MST-TS*.xlsx)")
	cmd.Flags().BoolVar(&f.es, "es", false, "Include Equipment Schedule files (ES-*.xlsx)")
	cmd.Flags().StringVar(&f.job, "job", "", "YAML job file with the request fields")
	if withValues {
		cmd.Flags().StringVar(&f.name, "name", "", "Project name")
		cmd.Flags().StringVar(&f.number, "number", "", "Project number")
		cmd.Flags().StringVar(&f.issuedFor, "issued-for", "", "Issued for (Equipment Schedule only)")
	}
}

// request 组装请求：先读 job 文件，再用显式给出的参数覆盖
func (f *requestFlags) request(cmd *cobra.Command) (model.UpdateRequest, error) {
	var req model.UpdateRequest
	if f.job != "" {
		var err error
		if req, err = model.LoadRequestFile(f.job); err != nil {
			return req, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("root") {
		req.RootFolder = f.root
	}
	if changed("name") {
		req.ProjectName = f.name
	}
	if changed("number") {
		req.ProjectNumber = f.number
	}
	if changed("issued-for") {
		req.IssuedFor = f.issuedFor
	}
	if changed("ts") || changed("es") {
		req.Categories = nil
		if f.ts {
			req.Categories = append(req.Categories, model.CategoryTechnicalSubmittal)
		}
		if f.es {
			req.Categories = append(req.Categories, model.CategoryEquipmentSchedule)
		}
	}

	req = req.Normalize()
	return req, req.Validate()
}

func newRunCmd(g *globalOptions) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Update matching workbooks without the browser form",
		Example: `  projinfo run --root ./24017 --name "Harbour Tower" --number 24017 --ts --es --issued-for "For Approval"
  projinfo run --job job.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runUpdate(ctx, a.coordinator, req, cmd.OutOrStdout())
		},
	}
	flags.register(cmd, true)
	return cmd
}

// runUpdate 执行一次运行并打印进度与汇总；有失败文件时返回错误
func runUpdate(ctx context.Context, c *updater.Coordinator, req model.UpdateRequest, out io.Writer) error {
	summary, err := c.Execute(ctx, req, func(e updater.ProgressEvent) {
		switch e.Type {
		case updater.EventStart:
			fmt.Fprintln(out, e.Message)
		case updater.EventFileDone:
			p := e.Data.(updater.FileProgress)
			fmt.Fprintf(out, "[%d/%d] %s\n", p.Current, p.Total, report.FormatOutcome(p.Outcome))
		}
	})
	if summary != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.TrimRight(report.Summary(summary), "\n"))
	}
	if err != nil {
		if errors.Is(err, updater.ErrNoMatchingFiles) {
			return err
		}
		return fmt.Errorf("update failed: %w", err)
	}

	switch {
	case summary.Cancelled:
		return fmt.Errorf("run cancelled after %d of %d files", summary.Processed(), summary.Total)
	case len(summary.Failed) > 0:
		return fmt.Errorf("%d of %d files failed", len(summary.Failed), summary.Total)
	}
	return nil
}

func newLocateCmd(g *globalOptions) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "List the workbooks a run would update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			loc := locator.New(g.cfg.Updater.Recursive)
			files, err := loc.Locate(req.RootFolder, req.Categories)
			if err != nil {
				return err
			}
			printCandidates(cmd.OutOrStdout(), files)
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func printCandidates(out io.Writer, files []model.CandidateFile) {
	for _, f := range files {
		fmt.Fprintf(out, "[%s] %s\n", f.Category.Prefix(), f.Path)
	}
	counts := locator.CountByCategory(files)
	fmt.Fprintf(out, "Found %d matching files", len(files))
	for _, c := range model.AllCategories {
		if n := counts[c]; n > 0 {
			fmt.Fprintf(out, ", %s: %d", c.Label(), n)
		}
	}
	fmt.Fprintln(out, ".")
}
