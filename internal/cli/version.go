// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionData is the version payload.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return e.output(v, func(w io.Writer) {
				fmt.Fprintf(w, "medibot %s\n", v.Version)
				fmt.Fprintln(w, RenderLabel("Commit")+v.GitCommit)
				fmt.Fprintln(w, RenderLabel("Built")+v.BuildDate)
				fmt.Fprintln(w, RenderLabel("Go")+v.GoVersion+" "+v.Platform)
			})
		},
	}
}
