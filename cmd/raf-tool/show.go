// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/creachadair/command"

	"github.com/dtn7/sle-go/pkg/storage"
	"github.com/dtn7/sle-go/pkg/tmframe"
)

// showArchive prints one line per frame read from r.
func showArchive(r io.Reader, w io.Writer, checkFecf bool) error {
	fis, err := storage.ReadArchive(r)
	if err != nil {
		return err
	}

	for _, fi := range fis {
		f := fi.Frame()
		line := fmt.Sprintf("%v antenna=%v quality=%v length=%d",
			f.EarthReceiveTime, f.AntennaID, f.Quality, len(f.Data))

		if header, err := tmframe.ParseHeader(f.Data); err != nil {
			line += fmt.Sprintf(" header=invalid (%v)", err)
		} else {
			line += fmt.Sprintf(" header=%v", header)
		}

		if checkFecf {
			if err := tmframe.CheckFecf(f.Data); err != nil {
				line += fmt.Sprintf(" fecf=invalid (%v)", err)
			} else {
				line += " fecf=ok"
			}
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func runShow(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("expected exactly one file")
	}

	var in io.ReadCloser = os.Stdin
	if env.Args[0] != "-" {
		f, err := os.Open(env.Args[0])
		if err != nil {
			return fmt.Errorf("opening file for reading errored: %w", err)
		}
		in = f
	}
	defer in.Close()

	return showArchive(in, os.Stdout, showFlags.Fecf)
}
