// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains UploadSession (§4.E), the per-request object owning the
// MultipartFSM, the spool, the target repo id/user, the progress
// handle, and the form-kv table.

package upload

import (
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// sessionState mirrors the FSM's states at the session level. PushChunk
// moves it to sessionError when the FSM reports an error; InError
// exposes that to the terminators.
type sessionState int

const (
	sessionInit sessionState = iota
	sessionHeaders
	sessionContent
	sessionError
)

// UploadSession owns every per-request resource for the lifetime of
// one upload/update request (§3 of the design).
type UploadSession struct {
	RepoID string
	User   string

	TempDir string

	// RestrictFilenamesTo, if non-nil, rejects file names containing
	// runes outside these ranges (enrichment carried from the
	// teacher's filename validation, wired in by cmd/seafhttpd).
	RestrictFilenamesTo []*unicode.RangeTable

	mu       sync.Mutex
	state    sessionState
	fsm      *MultipartFSM
	formKVs  map[string]string
	fileName string
	spool    *TempFileSpool

	progressID string
	progressH  Handle
	registry   *ProgressRegistry

	log zerolog.Logger
}

// NewUploadSession constructs a session and registers its progress
// counter. The caller must call Finalize exactly once.
func NewUploadSession(repoID, user, boundary string, total int64, progressID, tempDir string, registry *ProgressRegistry, log zerolog.Logger) (*UploadSession, error) {
	h, err := registry.Insert(progressID, total)
	if err != nil {
		return nil, err
	}

	s := &UploadSession{
		RepoID:     repoID,
		User:       user,
		TempDir:    tempDir,
		formKVs:    make(map[string]string),
		progressID: progressID,
		progressH:  h,
		registry:   registry,
		log:        log.With().Str("repo_id", repoID).Str("progress_id", progressID).Str("trace_id", uuid.NewString()).Logger(),
	}
	s.fsm = NewMultipartFSM(boundary, s)
	return s, nil
}

// PushChunk feeds chunk through the FSM, bumping the progress counter
// first. It is the moral equivalent of upload_read_cb.
func (s *UploadSession) PushChunk(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Bump(s.progressH, int64(len(chunk)))

	if s.state == sessionError {
		return nil
	}
	if err := s.fsm.Feed(chunk); err != nil {
		s.state = sessionError
		return err
	}
	return nil
}

// FormValue returns a previously received field value.
func (s *UploadSession) FormValue(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.formKVs[name]
	return v, ok
}

// FileName returns the user-declared filename from the "file" part's
// Content-Disposition header, or "" if none was ever seen.
func (s *UploadSession) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// SpoolPath returns the spooled file's path, or "" if the "file" part
// never opened a spool (§9 Open Question: a missing file part must be
// rejected explicitly by the caller, not stat()'d as "").
func (s *UploadSession) SpoolPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spool == nil {
		return ""
	}
	return s.spool.Path()
}

// InError reports whether the session has transitioned to the error
// state, in which case terminators must be no-ops.
func (s *UploadSession) InError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sessionError
}

// Finalize tears down every owned resource. Idempotent; safe to call
// exactly once by the framework regardless of how the request ended
// (invariant I1/I4).
func (s *UploadSession) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spool != nil {
		s.spool.Remove()
		s.spool = nil
	}
	s.registry.Remove(s.progressID)
	s.log.Debug().Msg("session finalized")
}

// --- Sink implementation, called by MultipartFSM under PushChunk's lock ---

// OnFieldValue implements Sink.
func (s *UploadSession) OnFieldValue(name, value string) {
	s.formKVs[name] = value
}

// errDisallowedFilename marks a client-input failure: the declared
// filename was rejected by InAlphabet (a path separator, "." or "..",
// an unsafe rune, or a rune outside RestrictFilenamesTo when that is
// set). Kept distinct from a
// NewTempFileSpool failure (a resource error) so fsm.go can classify
// the two into ErrBadRequest vs. ErrSpoolFailed respectively.
var errDisallowedFilename = errors.New("filename uses a disallowed alphabet")

// OnFileHeader implements Sink: opens the spool once the "file" part's
// headers are fully parsed and the declared name has passed InAlphabet.
func (s *UploadSession) OnFileHeader(fileName string) error {
	if !InAlphabet(fileName, s.RestrictFilenamesTo, nil) {
		return errors.Wrapf(errDisallowedFilename, "filename %q", fileName)
	}

	spool, err := NewTempFileSpool(s.TempDir, fileName)
	if err != nil {
		return err
	}
	s.fileName = fileName
	s.spool = spool
	s.log.Debug().Str("file_name", fileName).Str("spool", spool.Path()).Msg("spool opened")
	return nil
}

// OnFileBytes implements Sink: streams payload bytes into the spool.
func (s *UploadSession) OnFileBytes(p []byte) error {
	if s.spool == nil {
		return errors.New("file bytes received before spool was opened")
	}
	_, err := s.spool.Write(p)
	return err
}

// ensure UploadSession satisfies Sink at compile time.
var _ Sink = (*UploadSession)(nil)
