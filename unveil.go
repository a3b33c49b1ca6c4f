// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// +build !openbsd

// Contains the non-OpenBSD stub for the filesystem-sealing hooks
// Handler.LockFilesystem calls (see unveil_openbsd.go for the real
// implementation).

package upload

// unveil registers path as accessible with the given permission string
// ("r", "w", "c", "x", combined). Nop outside OpenBSD.
func unveil(path, perm string) error {
	return nil
}

// unveilBlock seals off every path not already passed to unveil,
// making further calls to unveil fail. Call once, after wiring is
// done. Nop outside OpenBSD.
func unveilBlock() error {
	return nil
}
