// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
	"github.com/ulikunitz/xz"
)

// archiveVersion is the first element of each archive.
const archiveVersion = 1

const maxArchiveItems = 1 << 24

// WriteArchive writes the FrameItems as an xz compressed CBOR array, preceded
// by the archive's version:
//
//	[version, [frame item, ...]]
func WriteArchive(w io.Writer, fis []FrameItem) error {
	xzW, err := xz.NewWriter(w)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(xzW)
	if err := cboring.WriteArrayLength(2, bw); err != nil {
		return err
	}
	if err := cboring.WriteUInt(archiveVersion, bw); err != nil {
		return err
	}
	if err := cboring.WriteArrayLength(uint64(len(fis)), bw); err != nil {
		return err
	}
	for i := range fis {
		if err := cboring.Marshal(&fis[i], bw); err != nil {
			return fmt.Errorf("marshalling frame item %d failed: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return xzW.Close()
}

// ReadArchive reads all FrameItems of an archive written by WriteArchive.
func ReadArchive(r io.Reader) (fis []FrameItem, err error) {
	xzR, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(xzR)

	if l, err := cboring.ReadArrayLength(br); err != nil {
		return nil, err
	} else if l != 2 {
		return nil, fmt.Errorf("expected archive array with length 2, got %d", l)
	}

	if version, err := cboring.ReadUInt(br); err != nil {
		return nil, err
	} else if version != archiveVersion {
		return nil, fmt.Errorf("unsupported archive version %d", version)
	}

	n, err := cboring.ReadArrayLength(br)
	if err != nil {
		return nil, err
	} else if n > maxArchiveItems {
		return nil, fmt.Errorf("archive of %d frame items exceeds the limit of %d", n, maxArchiveItems)
	}

	fis = make([]FrameItem, n)
	for i := range fis {
		if err := cboring.Unmarshal(&fis[i], br); err != nil {
			return nil, fmt.Errorf("unmarshalling frame item %d failed: %w", i, err)
		}
	}
	return fis, nil
}
