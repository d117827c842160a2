// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice captures speech from the microphone and turns it into text.
//
// A Recorder produces an encoded clip; the default ExecRecorder runs an
// external capture command (ffmpeg) that writes opus/webm to stdout. Capture
// drives the idle -> recording -> transcribing -> idle cycle, stops on its own
// after MaxDuration, releases the microphone before uploading, and delivers
// each outcome on its Results channel.
package voice
