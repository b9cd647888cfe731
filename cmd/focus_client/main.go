package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rx3lixir/focus_rooms/internal/roomclient"
	"github.com/rx3lixir/focus_rooms/internal/timer"
	"github.com/rx3lixir/focus_rooms/pkg/client"
	"github.com/rx3lixir/focus_rooms/pkg/logger"
	"github.com/spf13/viper"
)

const usage = `commands:
  start | pause | resume | stop | reset
  type <pomodoro|shortBreak|longBreak>
  task <text>
  move <x> <y>
  chat <text>
  status
  quit`

func main() {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FOCUS")
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("log_level", "warn")
	v.SetDefault("env", "dev")

	log, err := logger.New(logger.Config{
		Env:    v.GetString("env"),
		Level:  v.GetString("log_level"),
		Output: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	roomID, err := uuid.Parse(v.GetString("room"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "FOCUS_ROOM must be a room id")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(v.GetString("server"))

	signinCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	auth, err := api.Signin(signinCtx, v.GetString("email"), v.GetString("password"))
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sign in failed: %v\n", err)
		os.Exit(1)
	}

	cfg := roomclient.Config{
		RoomID:   roomID,
		UserID:   auth.User.ID,
		UserName: auth.User.Username,
		OnNotice: func(n string) { fmt.Println("*", n) },
	}
	if code := v.GetString("join_code"); code != "" {
		cfg.JoinCode = &code
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	sess, err := roomclient.Open(openCtx, api, cfg, log.Logger)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not enter room: %v\n", err)
		os.Exit(1)
	}

	runCtx, quit := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- sess.Run(runCtx) }()

	fmt.Printf("in room %s as %s\n%s\n", roomID, auth.User.Username, usage)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			exit, err := execute(sess, line, os.Stdout)
			if err != nil {
				fmt.Println("error:", err)
			}
			if exit {
				break loop
			}
		}
	}

	quit()
	if err := <-done; err != nil {
		log.Error("room session ended with error", "error", err)
		os.Exit(1)
	}
}

// execute runs one command line and reports whether the user asked to quit.
func execute(s *roomclient.Session, line string, out io.Writer) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "start":
		return false, s.Start()
	case "pause":
		return false, s.Pause()
	case "resume":
		return false, s.Resume()
	case "stop":
		return false, s.Stop()
	case "reset":
		return false, s.Reset()
	case "type":
		t, err := timer.ParseType(arg)
		if err != nil {
			return false, err
		}
		return false, s.SetType(t)
	case "task":
		return false, s.SetTask(arg)
	case "move":
		xs, ys, ok := strings.Cut(arg, " ")
		if !ok {
			return false, fmt.Errorf("usage: move <x> <y>")
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return false, fmt.Errorf("bad x: %w", err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return false, fmt.Errorf("bad y: %w", err)
		}
		return false, s.Move(x, y)
	case "chat":
		return false, s.Chat(arg)
	case "status":
		printStatus(out, s.Status())
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(out, usage)
		return false, nil
	}
	return false, fmt.Errorf("unknown command %q", cmd)
}

func printStatus(out io.Writer, st roomclient.Status) {
	t := st.Timer
	fmt.Fprintf(out, "timer: %s %s %02d:%02d  pomodoros=%d  v%d\n",
		t.Type, t.State, t.TimeLeft/60, t.TimeLeft%60, t.PomodoroCount, t.Version)
	fmt.Fprintf(out, "task: %q  position: (%.1f, %.1f)\n", st.Task, st.PositionX, st.PositionY)

	fmt.Fprintf(out, "participants (%d):\n", len(st.Participants))
	for _, p := range st.Participants {
		fmt.Fprintf(out, "  %-16s %-10s %-8s %02d:%02d  %s\n",
			p.UserName, p.TimerType, p.TimerState, p.TimeLeft/60, p.TimeLeft%60, p.Task)
	}

	if n := len(st.Messages); n > 0 {
		from := max(0, n-5)
		fmt.Fprintln(out, "chat:")
		for _, m := range st.Messages[from:] {
			fmt.Fprintf(out, "  [%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.UserName, m.Message)
		}
	}
}
