// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Program raf-tool exports, imports and prints frames archived by rafd.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
)

var exportFlags struct {
	Archive string `flag:"archive,Archive directory of rafd"`
	From    string `flag:"from,Earliest earth receive time (RFC 3339), inclusive"`
	To      string `flag:"to,Latest earth receive time (RFC 3339), exclusive"`
	Output  string `flag:"output,default=-,Output file, - for stdout"`
}

var importFlags struct {
	Archive string `flag:"archive,Archive directory of rafd"`
}

var showFlags struct {
	Fecf bool `flag:"fecf,Check each frame's trailing frame error control field"`
}

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: "Utilities for frames archived by rafd.",
		Commands: []*command.C{
			{
				Name:  "export",
				Usage: "-archive dir [-from time] [-to time] [-output file]",
				Help: `Export archived frames into an xz compressed CBOR file.

All frames received within [from, to) are exported, ordered by their earth
receive time. Without a from time, the export starts with the oldest frame.
Without a to time, it ends now.`,
				SetFlags: func(_ *command.Env, fs *flag.FlagSet) { flax.MustBind(fs, &exportFlags) },
				Run:      runExport,
			},
			{
				Name:  "import",
				Usage: "-archive dir file",
				Help: `Import an exported file into an archive.

Frames already within the archive are skipped.`,
				SetFlags: func(_ *command.Env, fs *flag.FlagSet) { flax.MustBind(fs, &importFlags) },
				Run:      runImport,
			},
			{
				Name:  "show",
				Usage: "[-fecf] file",
				Help: `Print the frames of an exported file, - reads stdin.

Each line contains a frame's earth receive time, antenna, quality, length and
its decoded TM or AOS transfer frame primary header.`,
				SetFlags: func(_ *command.Env, fs *flag.FlagSet) { flax.MustBind(fs, &showFlags) },
				Run:      runShow,
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}
