package app

import "sync"

// CancelState состояние контроллера отмены
type CancelState int

const (
	Armed    CancelState = iota // Новые файлы можно запускать
	Canceled                    // Новые файлы не запускаются до Reset
)

func (s CancelState) String() string {
	if s == Canceled {
		return "canceled"
	}
	return "armed"
}

// CancelController принадлежит одному прогону и решает, можно ли запускать новые файлы.
// Переход Armed -> Canceled необратим до явного Reset между прогонами.
type CancelController struct {
	mu    sync.Mutex
	state CancelState
}

// NewCancelController создаёт контроллер в состоянии Armed.
func NewCancelController() *CancelController {
	return &CancelController{}
}

// Cancel переводит контроллер в Canceled; true, если переход произошёл этим вызовом.
func (c *CancelController) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Canceled {
		return false
	}
	c.state = Canceled
	return true
}

// Canceled сообщает, была ли запрошена отмена.
func (c *CancelController) Canceled() bool {
	return c.State() == Canceled
}

// State текущее состояние
func (c *CancelController) State() CancelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset возвращает контроллер в Armed. Вызывать только между прогонами.
func (c *CancelController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Armed
}
