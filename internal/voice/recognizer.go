// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"bufio"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// =============================================================================
// COMMAND RECOGNIZER
// =============================================================================

// CommandRecognizer runs an external speech-to-text program and turns its
// stdout into recognizer events. The protocol is line oriented: every line
// is one final transcript, except lines starting with "~ " which are
// interim. When the process exits, an end event is emitted and the adapter
// decides whether to start a fresh one.
//
// This fits the usual local STT setups (whisper-cli, vosk wrappers) where a
// long-running process listens to the microphone and prints transcripts.
type CommandRecognizer struct {
	mu      sync.Mutex
	name    string
	args    []string
	cmd     *exec.Cmd
	running bool
	events  chan Event
}

// interimPrefix marks provisional transcript lines on the command's stdout.
const interimPrefix = "~ "

// ErrNoCommand means no speech-to-text command is configured.
var ErrNoCommand = errors.New("voice: no speech-to-text command configured")

// NewCommandRecognizer creates a recognizer for the given command line.
// The command string is split on whitespace; the first field is the program.
func NewCommandRecognizer(command string) (*CommandRecognizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	return &CommandRecognizer{
		name:   fields[0],
		args:   fields[1:],
		events: make(chan Event, 16),
	}, nil
}

// Start launches the speech-to-text process. A call while a session is
// already running is a no-op.
func (r *CommandRecognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	cmd := exec.Command(r.name, r.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	r.cmd = cmd
	r.running = true

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, interimPrefix) {
				r.events <- Event{Kind: EventInterim, Text: strings.TrimPrefix(line, interimPrefix)}
			} else {
				r.events <- Event{Kind: EventFinal, Text: line}
			}
		}
		cmd.Wait()

		r.mu.Lock()
		r.running = false
		r.cmd = nil
		r.mu.Unlock()

		r.events <- Event{Kind: EventEnd}
	}()
	return nil
}

// Stop terminates the running process, if any. The exit flows through the
// stdout goroutine, which emits the end event.
func (r *CommandRecognizer) Stop() error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// Events returns the recognizer event stream.
func (r *CommandRecognizer) Events() <-chan Event {
	return r.events
}
