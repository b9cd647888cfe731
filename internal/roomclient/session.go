// Package roomclient runs one user's presence in a room: the local timer,
// periodic heartbeats, reconciliation with the server copy and a single
// background worker that performs every API call in order.
package roomclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/session"
	"github.com/rx3lixir/focus_rooms/internal/timer"
	"github.com/rx3lixir/focus_rooms/pkg/client"
)

const (
	DefaultTickInterval      = time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultTaskDebounce      = 500 * time.Millisecond
	DefaultCallTimeout       = 5 * time.Second
	DefaultQueueSize         = 64

	minPosition = 5.0
	maxPosition = 95.0
)

// API is the subset of the HTTP client the session needs.
type API interface {
	Join(ctx context.Context, roomID uuid.UUID, req participant.JoinRequest) (*participant.JoinResponse, error)
	Leave(ctx context.Context, roomID uuid.UUID) error
	Participants(ctx context.Context, roomID uuid.UUID) ([]participant.View, error)
	UpdateTimer(ctx context.Context, roomID uuid.UUID, snap timer.Snapshot) (timer.Snapshot, error)
	UpdatePosition(ctx context.Context, roomID uuid.UUID, x, y float64) error
	UpdateTask(ctx context.Context, roomID uuid.UUID, task string) error
	SaveSession(ctx context.Context, roomID uuid.UUID, req session.SaveRequest) (*session.Session, error)
	SendChat(ctx context.Context, roomID uuid.UUID, req chat.MessageRequest) (*chat.Message, error)
	Messages(ctx context.Context, roomID uuid.UUID) ([]*chat.Message, error)
	Subscribe(ctx context.Context, roomID uuid.UUID) (<-chan event.Invalidation, error)
}

var _ API = (*client.Client)(nil)

var (
	ErrClosed    = errors.New("room session closed")
	ErrQueueFull = errors.New("write queue full")
)

type Config struct {
	RoomID   uuid.UUID
	UserID   uuid.UUID
	JoinCode *string
	UserName string

	TickInterval      time.Duration
	HeartbeatInterval time.Duration
	TaskDebounce      time.Duration
	CallTimeout       time.Duration
	QueueSize         int

	// OnNotice receives messages such as "Pomodoro completed!". Called
	// without the session lock held.
	OnNotice func(string)
}

func (c *Config) setDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.TaskDebounce <= 0 {
		c.TaskDebounce = DefaultTaskDebounce
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}

type job struct {
	op  string
	run func(ctx context.Context) error
}

// Status is a copy of what the session currently shows.
type Status struct {
	Timer        timer.Snapshot
	Task         string
	PositionX    float64
	PositionY    float64
	Participants []participant.View
	Messages     []*chat.Message
}

type Session struct {
	api API
	cfg Config
	log *slog.Logger

	mu           sync.Mutex
	machine      *timer.Machine
	posX, posY   float64
	dragging     bool
	typing       bool
	debounce     *time.Timer
	participants []participant.View
	messages     []*chat.Message
	closed       bool

	// timerGen changes whenever the machine adopts the server timer.
	// Timer writes queued under an older generation are obsolete.
	timerGen uint64

	queue      chan job
	workerDone chan struct{}
}

// Open joins the room and hydrates the local timer from the server row.
// The worker starts immediately; Run drives the clock.
func Open(ctx context.Context, api API, cfg Config, log *slog.Logger) (*Session, error) {
	cfg.setDefaults()

	resp, err := api.Join(ctx, cfg.RoomID, participant.JoinRequest{
		JoinCode: cfg.JoinCode,
		UserName: cfg.UserName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	me := resp.Participant
	s := &Session{
		api:        api,
		cfg:        cfg,
		log:        log.With("room_id", cfg.RoomID),
		machine:    timer.New(timer.Default(), me.Task),
		posX:       me.PositionX,
		posY:       me.PositionY,
		queue:      make(chan job, cfg.QueueSize),
		workerDone: make(chan struct{}),
	}
	s.machine.Restore(me.Timer())

	s.log.Info("joined room",
		"created", resp.Created,
		"timer_state", me.TimerState,
		"timer_version", me.TimerVersion,
	)

	go s.worker()
	s.enqueue(job{op: "refresh_participants", run: s.refreshParticipants})
	s.enqueue(job{op: "refresh_chat", run: s.refreshChat})

	return s, nil
}

// Run ticks the timer, sends heartbeats and reacts to invalidations until
// ctx is done. It then tears the session down and leaves the room.
func (s *Session) Run(ctx context.Context) error {
	events := s.subscribe(ctx)

	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return nil

		case <-tick.C:
			s.tick()

		case <-heartbeat.C:
			s.enqueue(job{op: "heartbeat", run: s.heartbeat})
			if events == nil {
				// Rejoin once the feed is back so missed changes are picked up
				if events = s.subscribe(ctx); events != nil {
					s.enqueue(job{op: "refresh_participants", run: s.refreshParticipants})
					s.enqueue(job{op: "refresh_chat", run: s.refreshChat})
				}
			}

		case inv, ok := <-events:
			if !ok {
				s.log.Warn("room feed closed")
				events = nil
				continue
			}
			s.invalidate(inv)
		}
	}
}

func (s *Session) subscribe(ctx context.Context) <-chan event.Invalidation {
	events, err := s.api.Subscribe(ctx, s.cfg.RoomID)
	if err != nil {
		s.log.Warn("failed to subscribe to room feed", "error", err)
		return nil
	}
	return events
}

func (s *Session) invalidate(inv event.Invalidation) {
	if inv.RoomID != s.cfg.RoomID {
		return
	}

	switch inv.Topic {
	case event.TopicParticipants:
		s.enqueue(job{op: "refresh_participants", run: s.refreshParticipants})
	case event.TopicChat:
		s.enqueue(job{op: "refresh_chat", run: s.refreshChat})
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	res := s.machine.Tick()
	gen := s.timerGen
	s.mu.Unlock()

	s.dispatch(res, gen)
}

// dispatch queues the commands of one transition as a single job so a
// rejected timer write can drop the session it produced. gen is the timer
// generation the transition was computed from.
func (s *Session) dispatch(res timer.Result, gen uint64) {
	if res.Notice != "" {
		s.log.Info("timer notice", "notice", res.Notice)
		if s.cfg.OnNotice != nil {
			s.cfg.OnNotice(res.Notice)
		}
	}
	if len(res.Commands) == 0 {
		return
	}

	cmds := res.Commands
	s.enqueue(job{op: "timer", run: func(ctx context.Context) error {
		return s.apply(ctx, gen, cmds)
	}})
}

func (s *Session) apply(ctx context.Context, gen uint64, cmds []timer.Command) error {
	s.mu.Lock()
	current := s.timerGen
	s.mu.Unlock()

	if gen != current {
		s.log.Debug("dropping timer write from before adopting the server copy",
			"commands", len(cmds))
		return nil
	}

	for _, cmd := range cmds {
		switch cmd.Kind {
		case timer.CmdUpdateTimer:
			_, err := s.api.UpdateTimer(ctx, s.cfg.RoomID, cmd.Timer)
			if errors.Is(err, apperr.ErrStaleTimerVersion) {
				s.restore(ctx, err)
				return nil
			}
			if err != nil {
				s.log.Warn("failed to update timer", "timer_version", cmd.Timer.Version, "error", err)
			}

		case timer.CmdSaveSession:
			_, err := s.api.SaveSession(ctx, s.cfg.RoomID, session.SaveRequest{
				TimerType: cmd.Session.Type,
				Duration:  cmd.Session.Duration,
				Task:      cmd.Session.Task,
			})
			if err != nil {
				s.log.Warn("failed to save session",
					"timer_type", cmd.Session.Type,
					"duration", cmd.Session.Duration,
					"error", err,
				)
			}
		}
	}
	return nil
}

// restore adopts the server timer after a rejected write. The rejection
// normally carries it; otherwise it is re-read. Timer writes still queued
// behind the rejected one are dropped.
func (s *Session) restore(ctx context.Context, rejection error) {
	server, ok := client.CurrentTimer(rejection)
	if !ok {
		views, err := s.api.Participants(ctx, s.cfg.RoomID)
		if err != nil {
			s.log.Warn("failed to reload timer after conflict", "error", err)
		}
		var me participant.View
		if me, ok = s.findMe(views); ok {
			server = me.Timer()
		}
	}

	s.mu.Lock()
	s.timerGen++
	if ok {
		s.machine.Restore(server)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	s.log.Info("timer changed elsewhere, adopted server copy",
		"timer_state", server.State,
		"timer_version", server.Version,
	)
}

func (s *Session) heartbeat(ctx context.Context) error {
	_, err := s.api.Join(ctx, s.cfg.RoomID, participant.JoinRequest{
		JoinCode: s.cfg.JoinCode,
		UserName: s.cfg.UserName,
	})
	return err
}

func (s *Session) refreshParticipants(ctx context.Context) error {
	views, err := s.api.Participants(ctx, s.cfg.RoomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.participants = views
	me, ok := s.findMe(views)
	if !ok {
		return nil
	}

	if s.machine.Reconcile(me.Timer()) {
		s.timerGen++
		s.log.Debug("adopted newer server timer", "timer_version", me.TimerVersion)
	}
	if !s.typing && me.Task != s.machine.Task() {
		s.machine.SetTask(me.Task)
	}
	if !s.dragging {
		s.posX, s.posY = me.PositionX, me.PositionY
	}
	return nil
}

func (s *Session) refreshChat(ctx context.Context) error {
	msgs, err := s.api.Messages(ctx, s.cfg.RoomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	return nil
}

func (s *Session) findMe(views []participant.View) (participant.View, bool) {
	for _, v := range views {
		if v.UserID == s.cfg.UserID {
			return v, true
		}
	}
	return participant.View{}, false
}

// enqueue never blocks. A full queue drops the job.
func (s *Session) enqueue(j job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	select {
	case s.queue <- j:
		return nil
	default:
		s.log.Warn("write queue full, dropping", "op", j.op)
		return ErrQueueFull
	}
}

func (s *Session) worker() {
	defer close(s.workerDone)

	for j := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CallTimeout)
		err := j.run(ctx)
		cancel()

		if err != nil {
			s.log.Warn("room call failed", "op", j.op, "error", err)
		}
	}
}

// teardown stops accepting work, lets the worker drain and leaves the room.
func (s *Session) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	close(s.queue)
	s.mu.Unlock()

	<-s.workerDone

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CallTimeout)
	defer cancel()

	if err := s.api.Leave(ctx, s.cfg.RoomID); err != nil {
		s.log.Warn("failed to leave room", "error", err)
		return
	}
	s.log.Info("left room")
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Timer:        s.machine.Snapshot(),
		Task:         s.machine.Task(),
		PositionX:    s.posX,
		PositionY:    s.posY,
		Participants: append([]participant.View(nil), s.participants...),
		Messages:     append([]*chat.Message(nil), s.messages...),
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return participant.DefaultPositionX
	}
	return math.Min(maxPosition, math.Max(minPosition, v))
}
