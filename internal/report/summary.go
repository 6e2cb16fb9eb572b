package report

import (
	"fmt"
	"sort"
	"strings"

	"projinfo/internal/model"
)

// Summary 运行结束提示文本（界面弹窗 / 命令行输出 / 邮件正文）
func Summary(s *model.RunSummary) string {
	if s == nil {
		return ""
	}
	if s.NoMatchingFiles {
		return "No matching Excel files found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Updated %d/%d files.\n", s.Updated, s.Total))
	if s.Cancelled {
		sb.WriteString(fmt.Sprintf("Run cancelled after %d files.\n", s.Processed()))
	}

	if len(s.Skipped) > 0 {
		sb.WriteString(fmt.Sprintf("%d files skipped:\n", len(s.Skipped)))
		counts := skipReasons(s.Skipped)
		reasons := make([]string, 0, len(counts))
		for reason := range counts {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			sb.WriteString(fmt.Sprintf("   %s: %d\n", reason, counts[reason]))
		}
	}

	if n := len(s.Failed); n > 0 {
		sb.WriteString(fmt.Sprintf("%d files failed.\n", n))
		if locked := s.LockedCount(); locked > 0 {
			sb.WriteString(fmt.Sprintf("%d files are open or locked. Close them and run the update again.\n", locked))
		}
	}

	if s.LogPath != "" {
		sb.WriteString("Log saved to:\n")
		sb.WriteString(s.LogPath)
		sb.WriteString("\n")
	}
	return sb.String()
}

func skipReasons(skipped []model.FileOutcome) map[string]int {
	out := make(map[string]int)
	for _, o := range skipped {
		out[o.Detail()]++
	}
	return out
}
