// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeBrowser is an in-memory RepoBrowser fixture.
type fakeBrowser struct {
	listings map[string][]DirEntry
	missing  bool
}

func (f *fakeBrowser) HeadDirListing(ctx context.Context, repoID, parentDir string) ([]DirEntry, bool) {
	if f.missing {
		return nil, false
	}
	return f.listings[parentDir], true
}

func TestUniqueNameResolver(t *testing.T) {
	Convey("a UniqueNameResolver", t, func() {
		Convey("returns the requested name unchanged when there is no collision (P6)", func() {
			browser := &fakeBrowser{listings: map[string][]DirEntry{
				"/docs": {{Name: "other.txt"}},
			}}
			r := UniqueNameResolver{Browser: browser}

			name, err := r.Resolve(context.Background(), "repo1", "/docs", "report.txt")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "report.txt")
		})

		Convey("disambiguates a single collision with '(1)' (P6)", func() {
			browser := &fakeBrowser{listings: map[string][]DirEntry{
				"/docs": {{Name: "report.txt"}},
			}}
			r := UniqueNameResolver{Browser: browser}

			name, err := r.Resolve(context.Background(), "repo1", "/docs", "report.txt")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "report (1).txt")
		})

		Convey("skips occupied candidates until it finds one absent from the listing", func() {
			taken := []DirEntry{{Name: "report.txt"}}
			for i := 1; i <= 3; i++ {
				taken = append(taken, DirEntry{Name: fmt.Sprintf("report (%d).txt", i)})
			}
			browser := &fakeBrowser{listings: map[string][]DirEntry{"/docs": taken}}
			r := UniqueNameResolver{Browser: browser}

			name, err := r.Resolve(context.Background(), "repo1", "/docs", "report.txt")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "report (4).txt")

			for _, e := range taken {
				So(name, ShouldNotEqual, e.Name)
			}
		})

		Convey("a name with no extension is disambiguated without a trailing dot", func() {
			browser := &fakeBrowser{listings: map[string][]DirEntry{
				"/docs": {{Name: "README"}},
			}}
			r := UniqueNameResolver{Browser: browser}

			name, err := r.Resolve(context.Background(), "repo1", "/docs", "README")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "README (1)")
		})

		Convey("exhausting all 16 attempts returns the last, still-colliding candidate (O2)", func() {
			taken := []DirEntry{{Name: "dup.bin"}}
			for i := 1; i <= maxRenameAttempts; i++ {
				taken = append(taken, DirEntry{Name: fmt.Sprintf("dup (%d).bin", i)})
			}
			browser := &fakeBrowser{listings: map[string][]DirEntry{"/x": taken}}
			r := UniqueNameResolver{Browser: browser}

			name, err := r.Resolve(context.Background(), "repo1", "/x", "dup.bin")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, fmt.Sprintf("dup (%d).bin", maxRenameAttempts))
		})

		Convey("an unresolvable repository/directory surfaces ErrRepoNotFound", func() {
			browser := &fakeBrowser{missing: true}
			r := UniqueNameResolver{Browser: browser}

			_, err := r.Resolve(context.Background(), "repo1", "/gone", "x.txt")
			So(err, ShouldEqual, ErrRepoNotFound)
		})
	})
}
