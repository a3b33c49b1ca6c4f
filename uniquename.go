// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains UniqueNameResolver (§4.D): given a repo snapshot and a
// requested filename in a parent directory, returns a non-colliding
// name.

package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// ErrRepoNotFound is returned when the repository's head commit or the
// requested directory cannot be resolved.
var ErrRepoNotFound = errors.New("repository or directory not found")

// maxRenameAttempts bounds the "(i)" disambiguation loop, matching the
// original's i = 1..16.
const maxRenameAttempts = 16

// UniqueNameResolver consults a RepoBrowser's directory snapshot to
// disambiguate a desired filename.
type UniqueNameResolver struct {
	Browser RepoBrowser
}

// Resolve returns desiredName unchanged if it is absent from
// parentDir's listing. Otherwise it tries "<stem> (i).<ext>" for
// i = 1..16, returning the first name absent from the listing, or the
// last (still colliding) candidate if all 16 collide — matching the
// original's behavior verbatim (see DESIGN.md / spec §9).
func (u UniqueNameResolver) Resolve(ctx context.Context, repoID, parentDir, desiredName string) (string, error) {
	entries, ok := u.Browser.HeadDirListing(ctx, repoID, parentDir)
	if !ok {
		return "", ErrRepoNotFound
	}

	desiredName = norm.NFC.String(desiredName)
	if !nameExists(entries, desiredName) {
		return desiredName, nil
	}

	stem, ext := splitFilename(desiredName)
	var candidate string
	for i := 1; i <= maxRenameAttempts; i++ {
		if ext != "" {
			candidate = fmt.Sprintf("%s (%d).%s", stem, i, ext)
		} else {
			candidate = fmt.Sprintf("%s (%d)", stem, i)
		}
		if !nameExists(entries, candidate) {
			return candidate, nil
		}
	}
	// All attempts collided; the original still returns the last
	// candidate and lets storage reject it downstream.
	return candidate, nil
}

func nameExists(entries []DirEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// splitFilename splits at the last '.' into (stem, ext); ext is ""
// when there is no dot.
func splitFilename(filename string) (stem, ext string) {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return filename, ""
	}
	return filename[:dot], filename[dot+1:]
}
