// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package voice

import (
	"os"

	"golang.org/x/sys/unix"
)

// interrupt sends SIGINT so ffmpeg writes the container trailer.
func interrupt(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGINT)
}
