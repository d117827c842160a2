// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCommand captures from the default PulseAudio source and writes
// opus in a webm container to stdout.
var DefaultCommand = []string{
	"ffmpeg", "-hide_banner", "-loglevel", "error", "-nostdin",
	"-f", "pulse", "-i", "default",
	"-ac", "{channels}", "-ar", "{rate}", "-af", "{filter}",
	"-c:a", "libopus", "-f", "webm", "pipe:1",
}

const (
	// startupGrace is how long a capture process must survive to count as
	// having opened the microphone.
	startupGrace = 300 * time.Millisecond

	// stopTimeout bounds the wait for the process to flush and exit.
	stopTimeout = 3 * time.Second
)

// ExecRecorder records by running an external command.
type ExecRecorder struct {
	// Command is the argv; {rate}, {channels} and {filter} are substituted.
	Command []string

	Logger *log.Logger
}

// NewExecRecorder creates a recorder for argv, or DefaultCommand when empty.
func NewExecRecorder(argv []string, logger *log.Logger) *ExecRecorder {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExecRecorder{Command: argv, Logger: logger.WithPrefix("voice")}
}

// FilterChain returns the ffmpeg audio filter for c.
func FilterChain(c Constraints) string {
	var filters []string
	if c.EchoCancel {
		// Speaker bleed sits mostly in the low band
		filters = append(filters, "highpass=f=100")
	}
	if c.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if len(filters) == 0 {
		return "anull"
	}
	return strings.Join(filters, ",")
}

// Args expands the placeholders of the command for c.
func (r *ExecRecorder) Args(c Constraints) []string {
	repl := strings.NewReplacer(
		"{rate}", strconv.Itoa(c.SampleRate),
		"{channels}", strconv.Itoa(c.Channels),
		"{filter}", FilterChain(c),
	)
	out := make([]string, len(r.Command))
	for i, a := range r.Command {
		out[i] = repl.Replace(a)
	}
	return out
}

// Start launches the capture command. A missing binary or a process that
// exits during the startup grace period is reported as ErrPermissionDenied.
func (r *ExecRecorder) Start(ctx context.Context, c Constraints) (Recording, error) {
	args := r.Args(c)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no record command configured", ErrPermissionDenied)
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	cmd := exec.Command(args[0], args[1:]...)
	rec := &execRecording{cmd: cmd, done: make(chan struct{}), logger: r.Logger}
	cmd.Stdout = &rec.stdout
	cmd.Stderr = &rec.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	go func() {
		rec.waitErr = cmd.Wait()
		close(rec.done)
	}()

	select {
	case <-rec.done:
		msg := strings.TrimSpace(rec.stderr.String())
		if msg == "" && rec.waitErr != nil {
			msg = rec.waitErr.Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	case <-ctx.Done():
		rec.kill()
		return nil, ctx.Err()
	case <-time.After(startupGrace):
	}

	r.Logger.Debug("recording started", "pid", cmd.Process.Pid, "rate", c.SampleRate, "channels", c.Channels)
	return rec, nil
}

// execRecording is a running capture process.
type execRecording struct {
	cmd     *exec.Cmd
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	done    chan struct{}
	waitErr error
	once    sync.Once
	logger  *log.Logger
}

// Stop interrupts the process so it finalizes the container, then collects
// stdout. The process is killed if it does not exit in time.
func (r *execRecording) Stop() (Clip, error) {
	var clip Clip
	var err error
	r.once.Do(func() {
		if ierr := interrupt(r.cmd.Process); ierr != nil {
			r.logger.Debug("interrupt failed, killing", "err", ierr)
			r.kill()
		}
		select {
		case <-r.done:
		case <-time.After(stopTimeout):
			r.kill()
			<-r.done
		}

		data := r.stdout.Bytes()
		if len(data) == 0 {
			err = ErrEmptyClip
			if msg := strings.TrimSpace(r.stderr.String()); msg != "" {
				err = fmt.Errorf("%w: %s", ErrEmptyClip, msg)
			}
			return
		}
		clip = Clip{
			Data:        append([]byte(nil), data...),
			Filename:    ClipFilename,
			ContentType: ClipContentType,
		}
	})
	if clip.Data == nil && err == nil {
		err = errors.New("recording already stopped")
	}
	return clip, err
}

func (r *execRecording) kill() {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
}
