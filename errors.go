// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import "github.com/pkg/errors"

// UploadErrorCode is carried in the "err=" query parameter of a
// redirect to an error page. Numeric assignment is part of the wire
// contract with the web UI: it must not be reordered.
type UploadErrorCode int

// Matches the enum declaration order of the original C implementation.
const (
	ErrFilename UploadErrorCode = iota
	ErrExists
	ErrNotExist
	ErrSize
	ErrQuota
	ErrRecv
	ErrInternal
)

// Sentinel errors returned by the Storage collaborator. Their text is
// part of the RPC contract (§6): the caller matches on the message,
// not on a typed error, because the collaborator is external.
var (
	ErrStorageInvalidFilename = errors.New("Invalid filename")
	ErrStorageFileExists      = errors.New("file already exists")
	ErrStorageFileNotExist    = errors.New("file does not exist")
)

// ErrQuotaExceeded is returned by QuotaAuthority.CheckQuota when the
// repository is over its allotted storage.
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrAccessDenied is returned by AccessAuthority.QueryAccessToken when
// the token does not resolve to a repository/user pair.
var ErrAccessDenied = errors.New("access denied")

// MaxUploadFileSize is the hard per-upload ceiling (§6): 100 MiB.
const MaxUploadFileSize int64 = 100 * (1 << 20)

// MaxContentLine bounds how much unflushed file payload the FSM will
// hold in fsm.line before forcing a write to the spool (§3 invariant).
const MaxContentLine = 10240

// DefaultTempDir is where TempFileSpool creates its files absent
// configuration, matching the original's TEMP_FILE_DIR.
const DefaultTempDir = "/tmp/seafhttp"
