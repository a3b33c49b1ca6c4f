// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// OpenBSD implementation of the filesystem-sealing hooks, backing
// Handler.LockFilesystem: unveil(2) restricts the process to exactly
// the paths NewHandler registered (the temp dir), then unveilBlock
// seals that set before the server starts accepting requests.

package upload

import (
	"syscall"

	"golang.org/x/sys/unix"
)

type pledgeError string

func (e pledgeError) Error() string { return string(e) }

const (
	errUnveilE2BIG  pledgeError = "unveil: per-process limit reached"
	errUnveilENOENT pledgeError = "unveil: path does not exist"
	errUnveilEINVAL pledgeError = "unveil: invalid permission string"
	errUnveilEPERM  pledgeError = "unveil: called after locking"
)

func translateUnveilErrorCode(err error) error {
	switch err {
	case nil:
		return nil
	case syscall.E2BIG:
		return errUnveilE2BIG
	case syscall.ENOENT:
		return errUnveilENOENT
	case syscall.EINVAL:
		return errUnveilEINVAL
	case syscall.EPERM:
		return errUnveilEPERM
	}
	return err
}

// unveil registers path as accessible with the given permission string.
func unveil(path, perm string) error {
	return translateUnveilErrorCode(unix.Unveil(path, perm))
}

// unveilBlock seals off every path not already passed to unveil.
func unveilBlock() error {
	return translateUnveilErrorCode(unix.UnveilBlock())
}
