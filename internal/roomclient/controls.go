package roomclient

import (
	"context"
	"strings"
	"time"

	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

func (s *Session) Start() error  { return s.transition((*timer.Machine).Start) }
func (s *Session) Pause() error  { return s.transition((*timer.Machine).Pause) }
func (s *Session) Resume() error { return s.transition((*timer.Machine).Resume) }
func (s *Session) Stop() error   { return s.transition((*timer.Machine).Stop) }
func (s *Session) Reset() error  { return s.transition((*timer.Machine).Reset) }

func (s *Session) SetType(t timer.Type) error {
	return s.transition(func(m *timer.Machine) (timer.Result, error) {
		return m.SetType(t)
	})
}

func (s *Session) transition(fn func(*timer.Machine) (timer.Result, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	res, err := fn(s.machine)
	gen := s.timerGen
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.dispatch(res, gen)
	return nil
}

// SetTask changes the task at once locally and writes it after the user
// stops typing. Server copies are not adopted while a write is pending.
func (s *Session) SetTask(task string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.machine.SetTask(task)
	s.typing = true

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.TaskDebounce, s.flushTask)
	return nil
}

func (s *Session) flushTask() {
	s.mu.Lock()
	task := s.machine.Task()
	s.mu.Unlock()

	s.enqueue(job{op: "task", run: func(ctx context.Context) error {
		defer s.doneTyping(task)
		return s.api.UpdateTask(ctx, s.cfg.RoomID, task)
	}})
}

// doneTyping clears the flag unless newer text arrived meanwhile.
func (s *Session) doneTyping(sent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.Task() == sent {
		s.typing = false
	}
}

// BeginDrag starts moving the avatar. Positions stay local until EndDrag.
func (s *Session) BeginDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = true
}

func (s *Session) MoveDrag(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging {
		return
	}
	s.posX, s.posY = x, y
}

// EndDrag clamps the final position into the room and writes it.
func (s *Session) EndDrag() error {
	s.mu.Lock()
	if !s.dragging {
		s.mu.Unlock()
		return nil
	}
	s.dragging = false
	s.posX, s.posY = clamp(s.posX), clamp(s.posY)
	x, y := s.posX, s.posY
	s.mu.Unlock()

	return s.enqueue(job{op: "position", run: func(ctx context.Context) error {
		return s.api.UpdatePosition(ctx, s.cfg.RoomID, x, y)
	}})
}

// Move is a drag with a single step.
func (s *Session) Move(x, y float64) error {
	s.BeginDrag()
	s.MoveDrag(x, y)
	return s.EndDrag()
}

func (s *Session) Chat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	x, y := s.posX, s.posY
	s.mu.Unlock()

	return s.enqueue(job{op: "chat", run: func(ctx context.Context) error {
		if _, err := s.api.SendChat(ctx, s.cfg.RoomID, chat.MessageRequest{Message: text, CursorX: x, CursorY: y}); err != nil {
			return err
		}
		return s.refreshChat(ctx)
	}})
}
