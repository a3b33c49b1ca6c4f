// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains RequestLifecycle (§4.F): wires headers-hook → read-hook →
// completion-hook → finalize-hook onto net/http, using chi for routing.
//
// net/http hands a handler a pull-based io.Reader body, unlike evhtp's
// push-style on_read hook; RequestLifecycle reads the body itself in
// bounded chunks and drives the session, which preserves the "bounded
// in-memory window, no whole-body buffering" property the FSM relies
// on (§9 Open Question O1).

package upload

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"unicode"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// readChunkSize is how much of the body RequestLifecycle reads per
// Read() call. It bounds memory use independent of Content-Length.
const readChunkSize = 64 * 1024

// Config is the flat, ambient configuration for one Handler instance,
// the standalone-service counterpart of the teacher's
// UploadHandlerConfiguration.
type Config struct {
	// TempDir is where spools are created (default DefaultTempDir).
	TempDir string
	// ServiceURL is the external web UI base URL used by redirects.
	ServiceURL string
	// RestrictFilenamesTo, if set, rejects uploaded filenames using
	// runes outside these ranges.
	RestrictFilenamesTo []*unicode.RangeTable
}

// Handler implements the three HTTP surfaces of §6: POST /upload/{token},
// POST /update/{token}, and GET /upload_progress.
type Handler struct {
	Config Config

	Access   AccessAuthority
	Quota    QuotaAuthority
	Storage  Storage
	Browser  RepoBrowser
	Registry *ProgressRegistry

	Log zerolog.Logger
}

// NewHandler wires a Handler's collaborators and creates its temp
// directory, matching upload_file_init's g_mkdir_with_parents call.
func NewHandler(cfg Config, access AccessAuthority, quota QuotaAuthority, storage Storage, browser RepoBrowser, log zerolog.Logger) (*Handler, error) {
	if cfg.TempDir == "" {
		cfg.TempDir = DefaultTempDir
	}
	if err := os.MkdirAll(cfg.TempDir, 0777); err != nil {
		return nil, pkgerrors.Wrapf(err, "create temp dir %s", cfg.TempDir)
	}
	_ = unveil(cfg.TempDir, "rwc")

	return &Handler{
		Config:   cfg,
		Access:   access,
		Quota:    quota,
		Storage:  storage,
		Browser:  browser,
		Registry: NewProgressRegistry(log),
		Log:      log,
	}, nil
}

// LockFilesystem calls unveilBlock on platforms that support unveil(2)
// (OpenBSD), sealing off every filesystem path not already unveiled by
// NewHandler. A nop elsewhere. Call this once, after wiring is done and
// right before serving requests.
func (h *Handler) LockFilesystem() error {
	return unveilBlock()
}

// Router returns a chi.Router with all three surfaces mounted.
func (h *Handler) Router() http.Handler {
	r := newChiRouter()
	r.Post("/upload/{token}", h.serveUpload)
	r.Post("/update/{token}", h.serveUpdate)
	r.Get("/upload_progress", ProgressEndpoint{Registry: h.Registry}.ServeHTTP)
	return r
}

// beginSession implements the headers-hook (§4.F "On headers"),
// returning a ready UploadSession or writing an error response itself.
func (h *Handler) beginSession(w http.ResponseWriter, r *http.Request, token string) (*UploadSession, bool) {
	ctx := r.Context()

	if token == "" {
		h.reject(w, http.StatusBadRequest, "Invalid URL")
		return nil, false
	}

	repoID, user, err := h.Access.QueryAccessToken(ctx, token)
	if err != nil {
		h.reject(w, http.StatusBadRequest, "Access denied")
		return nil, false
	}

	boundary, err := parseBoundary(r.Header.Get("Content-Type"))
	if err != nil {
		h.reject(w, http.StatusBadRequest, "Invalid Content-Type")
		return nil, false
	}

	contentLenStr := r.Header.Get("Content-Length")
	if contentLenStr == "" {
		h.reject(w, http.StatusBadRequest, "Content-Length not found")
		return nil, false
	}
	total, err := strconv.ParseInt(contentLenStr, 10, 64)
	if err != nil {
		h.reject(w, http.StatusBadRequest, "Invalid Content-Length")
		return nil, false
	}

	progressID := r.URL.Query().Get("X-Progress-ID")
	if progressID == "" {
		h.reject(w, http.StatusBadRequest, "Progress id not found")
		return nil, false
	}

	session, err := NewUploadSession(repoID, user, boundary, total, progressID, h.Config.TempDir, h.Registry, h.Log)
	if err != nil {
		h.reject(w, http.StatusBadRequest, "Duplicate upload")
		return nil, false
	}
	session.RestrictFilenamesTo = h.Config.RestrictFilenamesTo

	return session, true
}

// drainBody implements the read-hook (§4.F "On body chunk"), reading
// the request body in bounded chunks and feeding the session until
// EOF or a fatal error. On error it writes the response itself and
// returns false.
func (h *Handler) drainBody(w http.ResponseWriter, r *http.Request, session *UploadSession) bool {
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := r.Body.Read(buf)
		if n > 0 {
			if err := session.PushChunk(buf[:n]); err != nil {
				h.respondFSMError(w, err)
				return false
			}
		}
		if readErr == io.EOF {
			return true
		}
		if readErr != nil {
			// Client disconnect mid-body: indistinguishable from
			// success at this layer (§5). Let the caller's terminator
			// catch a short/absent spool.
			return true
		}
	}
}

func (h *Handler) respondFSMError(w http.ResponseWriter, err error) {
	cause := pkgerrors.Cause(err)
	switch cause {
	case ErrBadRequest:
		w.Header().Set("Connection", "close")
		http.Error(w, "Bad request", http.StatusBadRequest)
	case ErrSpoolFailed:
		w.Header().Set("Connection", "close")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		w.Header().Set("Connection", "close")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) reject(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Connection", "close")
	http.Error(w, msg, code)
}

// serveUpload implements the upload terminator (§4.F "On upload
// terminator") atop the headers/read hooks.
func (h *Handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	token := chiURLParam(r, "token")
	session, ok := h.beginSession(w, r, token)
	if !ok {
		return
	}
	defer session.Finalize()

	if !h.drainBody(w, r, session) {
		return
	}
	if session.InError() {
		return
	}

	parentDir, ok := session.FormValue("parent_dir")
	if !ok {
		h.reject(w, http.StatusBadRequest, "Invalid URL")
		return
	}
	spoolPath := session.SpoolPath()
	if spoolPath == "" {
		h.reject(w, http.StatusBadRequest, "No file given")
		return
	}

	redirects := RedirectResponders{ServiceURL: h.Config.ServiceURL}
	ctx := r.Context()

	fi, err := os.Stat(spoolPath)
	if err != nil {
		redirects.UploadError(w, session.RepoID, parentDir, session.FileName(), ErrRecv)
		return
	}
	if fi.Size() > MaxUploadFileSize {
		redirects.UploadError(w, session.RepoID, parentDir, session.FileName(), ErrSize)
		return
	}
	if err := h.Quota.CheckQuota(ctx, session.RepoID); err != nil {
		redirects.UploadError(w, session.RepoID, parentDir, session.FileName(), ErrQuota)
		return
	}

	resolver := UniqueNameResolver{Browser: h.Browser}
	uniqueName, err := resolver.Resolve(ctx, session.RepoID, parentDir, session.FileName())
	if err != nil {
		redirects.UploadError(w, session.RepoID, parentDir, session.FileName(), ErrInternal)
		return
	}

	if err := h.Storage.PostFile(ctx, session.RepoID, spoolPath, parentDir, uniqueName, session.User); err != nil {
		redirects.UploadError(w, session.RepoID, parentDir, session.FileName(), classifyStorageError(err))
		return
	}

	redirects.Success(w, session.RepoID, parentDir)
}

// serveUpdate implements the update terminator (§4.F "On update
// terminator").
func (h *Handler) serveUpdate(w http.ResponseWriter, r *http.Request) {
	token := chiURLParam(r, "token")
	session, ok := h.beginSession(w, r, token)
	if !ok {
		return
	}
	defer session.Finalize()

	if !h.drainBody(w, r, session) {
		return
	}
	if session.InError() {
		return
	}

	targetFile, ok := session.FormValue("target_file")
	if !ok {
		h.reject(w, http.StatusBadRequest, "Invalid URL")
		return
	}
	spoolPath := session.SpoolPath()
	if spoolPath == "" {
		h.reject(w, http.StatusBadRequest, "No file given")
		return
	}

	parentDir, filename := splitPath(targetFile)
	redirects := RedirectResponders{ServiceURL: h.Config.ServiceURL}
	ctx := r.Context()

	fi, err := os.Stat(spoolPath)
	if err != nil {
		redirects.UpdateError(w, session.RepoID, targetFile, ErrRecv)
		return
	}
	if fi.Size() > MaxUploadFileSize {
		redirects.UpdateError(w, session.RepoID, targetFile, ErrSize)
		return
	}
	if err := h.Quota.CheckQuota(ctx, session.RepoID); err != nil {
		redirects.UpdateError(w, session.RepoID, targetFile, ErrQuota)
		return
	}

	if err := h.Storage.PutFile(ctx, session.RepoID, spoolPath, parentDir, filename, session.User); err != nil {
		redirects.UpdateError(w, session.RepoID, targetFile, classifyStorageError(err))
		return
	}

	redirects.Success(w, session.RepoID, parentDir)
}

func classifyStorageError(err error) UploadErrorCode {
	cause := pkgerrors.Cause(err)
	switch cause.Error() {
	case ErrStorageInvalidFilename.Error():
		return ErrFilename
	case ErrStorageFileExists.Error():
		return ErrExists
	case ErrStorageFileNotExist.Error():
		return ErrNotExist
	default:
		return ErrInternal
	}
}

// splitPath splits "target_file" into (dir, base), matching
// g_path_get_dirname / g_path_get_basename semantics closely enough
// for repository-relative paths (always '/'-separated, no drive
// letters).
func splitPath(p string) (dir, base string) {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ".", p
	}
	if idx == 0 {
		return "/", p[1:]
	}
	return p[:idx], p[idx+1:]
}

// parseBoundary extracts the boundary= parameter from a
// "multipart/form-data; boundary=..." Content-Type header.
func parseBoundary(contentType string) (string, error) {
	if contentType == "" {
		return "", pkgerrors.New("missing Content-Type header")
	}
	params := strings.Split(contentType, ";")
	for i := range params {
		params[i] = strings.TrimSpace(params[i])
	}
	if len(params) < 2 || !strings.EqualFold(params[0], "multipart/form-data") {
		return "", pkgerrors.New("invalid Content-Type")
	}
	for _, p := range params[1:] {
		if strings.HasPrefix(strings.ToLower(p), "boundary") {
			eq := strings.IndexByte(p, '=')
			if eq < 0 {
				return "", pkgerrors.New("invalid boundary parameter")
			}
			return strings.Trim(p[eq+1:], `"`), nil
		}
	}
	return "", pkgerrors.New("boundary not given")
}
