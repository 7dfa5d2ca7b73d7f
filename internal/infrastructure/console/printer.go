package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	app "object-detector/internal/application"
	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// Printer выводит прогресс в консоль: строка на каждый файл и сводка по меткам в конце.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter создаёт принтер поверх out (обычно os.Stdout).
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// OnItem печатает строку прогресса.
func (p *Printer) OnItem(ctx context.Context, ev entity.ItemEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := fmt.Fprintf(p.out, "    %s\n", app.FormatItem(ev))
	return err
}

// OnRunFinished печатает сводку прогона.
func (p *Printer) OnRunFinished(ctx context.Context, result *entity.RunResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintln(p.out); err != nil {
		return err
	}
	for _, line := range app.Summary(result) {
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

// PrintObjects выводит таблицу сохранённых объектов.
func PrintObjects(out io.Writer, objects []entity.StoredObject) {
	fmt.Fprintf(out, "%5s %15s %5s %5s %8s %6s\n\n", "ID", "Label", "X", "Y", "Width", "Height")
	for _, o := range objects {
		fmt.Fprintf(out, "%5d %15s %5d %5d %8d %6d\n", o.ID, o.Label, o.X, o.Y, o.Width, o.Height)
	}
}

var (
	_ port.Observer    = (*Printer)(nil)
	_ port.RunFinisher = (*Printer)(nil)
)
