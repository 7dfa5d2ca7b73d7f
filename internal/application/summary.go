package app

import (
	"fmt"
	"strings"

	"object-detector/internal/domain/entity"
)

// FormatItem строка прогресса: «NN % файл : метка, метка, ».
func FormatItem(ev entity.ItemEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %% %s : ", ev.Percent(), ev.Result.Item.Name())
	if ev.Result.Failed() {
		fmt.Fprintf(&b, "error: %v", ev.Result.Err)
		return b.String()
	}
	for _, label := range ev.Result.Labels() {
		b.WriteString(label)
		b.WriteString(", ")
	}
	return b.String()
}

// Summary итог прогона по меткам, по строке на метку.
func Summary(result *entity.RunResult) []string {
	lines := make([]string, 0, 4)
	lines = append(lines, fmt.Sprintf("Found in %s:", result.Folder))
	for _, lc := range result.LabelCounts() {
		lines = append(lines, fmt.Sprintf("    %d %s(s)", lc.Count, lc.Label))
	}
	if n := result.FailedCount(); n > 0 {
		lines = append(lines, fmt.Sprintf("Failed: %d", n))
	}
	if result.Canceled {
		lines = append(lines, fmt.Sprintf("Canceled: %d of %d files were not started", result.Skipped(), result.Total))
	}
	lines = append(lines, fmt.Sprintf("Done in %dms.", result.Elapsed.Milliseconds()))
	return lines
}
