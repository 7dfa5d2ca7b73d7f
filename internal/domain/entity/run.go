package entity

import (
	"sort"
	"time"
)

// RunResult итог одного прогона по каталогу.
// Порядок Items недетерминирован при параллельной обработке.
type RunResult struct {
	ID       string
	Folder   string
	Total    int // сколько файлов было найдено в каталоге
	Items    []ItemResult
	Canceled bool
	Elapsed  time.Duration
}

// Completed число обработанных файлов (включая ошибочные).
func (r *RunResult) Completed() int {
	return len(r.Items)
}

// Skipped число файлов, которые так и не были запущены из-за отмены.
func (r *RunResult) Skipped() int {
	return r.Total - len(r.Items)
}

// FailedCount число файлов, обработка которых завершилась ошибкой.
func (r *RunResult) FailedCount() int {
	n := 0
	for _, item := range r.Items {
		if item.Failed() {
			n++
		}
	}
	return n
}

// DetectionCount суммарное число найденных объектов.
func (r *RunResult) DetectionCount() int {
	n := 0
	for _, item := range r.Items {
		n += len(item.Detections)
	}
	return n
}

// LabelCount число объектов одной метки.
type LabelCount struct {
	Label string
	Count int
}

// LabelCounts считает объекты по меткам; сортировка по убыванию количества, затем по имени.
func (r *RunResult) LabelCounts() []LabelCount {
	counts := make(map[string]int)
	for _, item := range r.Items {
		for _, d := range item.Detections {
			counts[d.Label]++
		}
	}

	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Progress состояние прогона в моменте.
type Progress struct {
	RunID     string
	Completed int
	Total     int
	Canceled  bool
}

// Percent процент обработанных файлов (целое, с округлением вниз).
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}

// ItemEvent уведомление о завершении обработки одного файла.
// Progress фиксируется сразу после учёта этого файла.
type ItemEvent struct {
	Result ItemResult
	Progress
}
