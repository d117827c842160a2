// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package voice

import "os"

// interrupt kills the process; console signals cannot target a child.
func interrupt(p *os.Process) error {
	return p.Kill()
}
