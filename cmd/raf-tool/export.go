// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creachadair/command"
	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/sle-go/pkg/storage"
)

// parseRange of two optional RFC 3339 times; the range defaults to [epoch, now).
func parseRange(from, to string) (f, t time.Time, err error) {
	if from != "" {
		if f, err = time.Parse(time.RFC3339, from); err != nil {
			return
		}
	}

	if to == "" {
		t = time.Now()
	} else if t, err = time.Parse(time.RFC3339, to); err != nil {
		return
	}

	if !f.Before(t) {
		err = fmt.Errorf("empty range [%v, %v)", f, t)
	}
	return
}

// exportArchive writes all frames of the Store within [from, to) to w.
func exportArchive(store *storage.Store, from, to time.Time, w io.Writer) (int, error) {
	fis, err := store.QueryRange(from, to)
	if err != nil {
		return 0, err
	}
	return len(fis), storage.WriteArchive(w, fis)
}

// importArchive pushes all frames read from r into the Store.
func importArchive(store *storage.Store, r io.Reader) (int, error) {
	fis, err := storage.ReadArchive(r)
	if err != nil {
		return 0, err
	}

	for i, fi := range fis {
		if err := store.Push(fi.Frame()); err != nil {
			return i, fmt.Errorf("importing frame item %d failed: %w", i, err)
		}
	}
	return len(fis), nil
}

func runExport(env *command.Env) (err error) {
	if exportFlags.Archive == "" {
		return env.Usagef("missing archive directory")
	}
	if len(env.Args) != 0 {
		return env.Usagef("extra arguments: %q", env.Args)
	}

	from, to, err := parseRange(exportFlags.From, exportFlags.To)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(exportFlags.Archive)
	if err != nil {
		return fmt.Errorf("opening archive errored: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	var out io.WriteCloser = os.Stdout
	if exportFlags.Output != "-" {
		if out, err = os.Create(exportFlags.Output); err != nil {
			return fmt.Errorf("creating file errored: %w", err)
		}
	}

	n, err := exportArchive(store, from, to, out)
	if out != os.Stdout {
		if closeErr := out.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported %d frames\n", n)
	return nil
}

func runImport(env *command.Env) (err error) {
	if importFlags.Archive == "" {
		return env.Usagef("missing archive directory")
	}
	if len(env.Args) != 1 {
		return env.Usagef("expected exactly one file")
	}

	f, err := os.Open(env.Args[0])
	if err != nil {
		return fmt.Errorf("opening file for reading errored: %w", err)
	}
	defer f.Close()

	store, err := storage.NewStore(importFlags.Archive)
	if err != nil {
		return fmt.Errorf("opening archive errored: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	n, err := importArchive(store, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Imported %d frames\n", n)
	return nil
}
