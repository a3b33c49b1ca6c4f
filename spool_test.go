// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTempFileSpool(t *testing.T) {
	Convey("NewTempFileSpool creates an exclusively-owned file", t, func() {
		dir, err := os.MkdirTemp("", "spooltest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		s, err := NewTempFileSpool(dir, "notes.txt")
		So(err, ShouldBeNil)
		So(s.Path(), ShouldStartWith, filepath.Join(dir, "notes.txt"))

		_, err = os.Stat(s.Path())
		So(err, ShouldBeNil)

		Convey("Write reports every byte written, and zero for an empty write", func() {
			n, err := s.Write([]byte("hello world"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len("hello world"))

			n, err = s.Write(nil)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("Remove closes the descriptor and unlinks the path, leaving no trace (P1/I4)", func() {
			path := s.Path()
			s.Remove()

			_, err := os.Stat(path)
			So(os.IsNotExist(err), ShouldBeTrue)

			// Safe to call more than once.
			So(func() { s.Remove() }, ShouldNotPanic)
			So(func() { s.Close() }, ShouldNotPanic)
		})
	})

	Convey("two spools for the same requested filename never collide", t, func() {
		dir, err := os.MkdirTemp("", "spooltest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		a, err := NewTempFileSpool(dir, "dup.bin")
		So(err, ShouldBeNil)
		defer a.Remove()

		b, err := NewTempFileSpool(dir, "dup.bin")
		So(err, ShouldBeNil)
		defer b.Remove()

		So(a.Path(), ShouldNotEqual, b.Path())
	})
}

func TestRandomSuffix(t *testing.T) {
	Convey("randomSuffix returns the requested number of lowercase-alphanumeric characters", t, func() {
		s := randomSuffix(6)
		So(len(s), ShouldEqual, 6)
		for _, r := range s {
			So(r >= 'a' && r <= 'z' || r >= '0' && r <= '9', ShouldBeTrue)
		}
	})
}
