// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains the interfaces to collaborating services that this module
// treats as fixed (§6 of the design): access-token authority, quota
// authority, repository storage, and repository directory browsing.
// Production wiring of these lives outside this package; cmd/seafhttpd
// wires RPC-backed implementations, tests wire in-memory fakes.

package upload

import "context"

// AccessAuthority resolves a short-lived URL token to the repository
// and user it was issued for.
type AccessAuthority interface {
	QueryAccessToken(ctx context.Context, token string) (repoID, user string, err error)
}

// QuotaAuthority reports whether a repository still has room for more
// data. A non-nil error means the quota is exhausted or unknown.
type QuotaAuthority interface {
	CheckQuota(ctx context.Context, repoID string) error
}

// Storage is the repository's file-write RPC surface.
type Storage interface {
	// PostFile adds a new file at parentDir/name.
	PostFile(ctx context.Context, repoID, srcPath, parentDir, name, user string) error
	// PutFile overwrites an existing file at parentDir/name.
	PutFile(ctx context.Context, repoID, srcPath, parentDir, name, user string) error
}

// DirEntry is one entry of a directory listing as seen at a
// repository's head commit.
type DirEntry struct {
	Name string
}

// RepoBrowser exposes read-only directory listings at the repository's
// current head, used by UniqueNameResolver to detect collisions.
type RepoBrowser interface {
	HeadDirListing(ctx context.Context, repoID, parentDir string) (entries []DirEntry, ok bool)
}
