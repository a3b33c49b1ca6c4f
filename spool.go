// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains TempFileSpool (§4.C), the per-upload temp file that the
// "file" part's bytes are streamed into. Its lifecycle shape —
// guaranteed release of the descriptor and the path on every exit path
// — is adapted from blitznote.com/src/protofile's ProtoFileBehaver,
// but re-targeted at SPEC_FULL semantics: the spooled file is consumed
// by a synchronous RPC *by path* and is never meant to survive the
// request, so there is no Persist()-style rename into visibility here,
// only unconditional Close+unlink in Remove.

package upload

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// TempFileSpool is a write-only sink backed by a uniquely named
// temporary file created with exclusive ownership and 0600
// permissions.
type TempFileSpool struct {
	file *os.File
	path string
}

// NewTempFileSpool creates "<dir>/<filename><random6>" exclusively. dir
// is created with 0777 if absent, matching the original's
// g_mkdir_with_parents(TEMP_FILE_DIR, 0777).
func NewTempFileSpool(dir, filename string) (*TempFileSpool, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, errors.Wrap(err, "create temp dir")
	}

	for attempt := 0; attempt < 8; attempt++ {
		path := filepath.Join(dir, filename+randomSuffix(6))
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			return &TempFileSpool{file: f, path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "open temp file")
		}
	}
	return nil, errors.New("could not allocate a unique temp file name")
}

// Path is the spool's location on disk.
func (s *TempFileSpool) Path() string {
	return s.path
}

// Write implements io.Writer with full-write semantics: short writes
// are retried until the buffer is drained or a write fails.
func (s *TempFileSpool) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.file.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// Close releases the file descriptor. Safe to call more than once.
func (s *TempFileSpool) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Remove closes the descriptor (if still open) and unlinks the path.
// Safe to call more than once; satisfies invariant I4.
func (s *TempFileSpool) Remove() {
	s.Close()
	if s.path != "" {
		os.Remove(s.path)
	}
}

// randomSuffix returns n lowercase-alphanumeric characters for
// disambiguating concurrent spools that were opened for the same
// declared filename.
func randomSuffix(n uint32) string {
	buf := make([]byte, n)
	rand.Read(buf)

	for i, b := range buf {
		b %= 36
		if b < 10 {
			b += '0'
		} else {
			b += 'a' - 10
		}
		buf[i] = b
	}

	return string(buf)
}
