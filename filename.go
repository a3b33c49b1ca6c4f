// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Filename validation for the "file" part's declared name: the set of
// runes a repository is willing to accept as a single path segment,
// and the alphabet restriction configurable via --restrict-filenames.

package upload

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// AlwaysRejectedRunes are unsafe on common network filesystems
	// (SMB/NFS/etc.) regardless of any configured alphabet restriction.
	AlwaysRejectedRunes = `"*:<>?|\`

	thinSpaceRune = ' '

	errUnexpectedRange  blockListParseError = "unexpected Unicode range: "
	errRangeOutOfBounds blockListParseError = "value out of bounds"
)

// blockListParseError is returned by ParseUnicodeBlockList; it is
// never recoverable mid-parse.
type blockListParseError string

func (e blockListParseError) Error() string { return string(e) }

// nonFilenameRunes covers unicode.PrintRanges entries that are
// technically "printable" but still unfit for a filename: line/
// paragraph separators and the specials block (which also covers the
// obsolete terminal placeholder boxes some legacy clients emit).
var nonFilenameRunes = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x2028, 0x202f, 1},
		{0xfff0, 0xffff, 1},
	},
	LatinOffset: 0,
}

// InAlphabet reports whether s is acceptable as the declared name of a
// single entry in a repository directory: no path separator, not a
// reference to the entry itself or its parent, consisting only of
// runes in alphabet (when non-nil) normalized under enforceForm (when
// non-nil), and free of anything unsafe to use as a filename.
//
// The repository manager addresses an uploaded file by a (parent
// directory, single name) pair, so a name embedding '/' or resolving
// to "." or ".." would either escape that directory or name no file
// at all; upload-file.c leaves catching this to the repo manager
// downstream, but a streaming upload has already opened a spool file
// under that name by the time the manager would see it, so this
// module rejects both up front instead.
//
// Whitespace other than U+0020 (space) and U+2009 (thin space) is
// always rejected, as is anything unicode.IsPrint considers
// non-printable.
func InAlphabet(s string, alphabet []*unicode.RangeTable, enforceForm *norm.Form) bool {
	switch s {
	case "", ".", "..":
		return false
	}

	if enforceForm != nil && !enforceForm.IsNormalString(s) {
		return false
	}

	if alphabet != nil {
		for _, r := range s {
			if !unicode.In(r, alphabet...) {
				return false
			}
		}
	}

	for _, r := range s {
		if r == '/' {
			return false
		}
		if uint32(r) <= unicode.MaxLatin1 && strings.ContainsRune(AlwaysRejectedRunes, r) {
			return false
		}
		if r == thinSpaceRune {
			continue
		}
		if unicode.Is(nonFilenameRunes, r) || !unicode.IsPrint(r) {
			return false
		}
	}

	return true
}

// restrictedRange is one parsed entry of a --restrict-filenames value:
// a Unicode range sampled every stride code points.
type restrictedRange struct {
	low, high, stride uint32
}

// ParseUnicodeBlockList translates a string of whitespace-delimited
// Unicode ranges into a unicode.RangeTable, for use as the
// --restrict-filenames allowlist (cmd/seafhttpd).
//
// Every bound must fit into uint32. One range looks like:
//
//	<low>-<high>[:<stride>]
//
// with stride defaulting to 1. A token of exactly "//" ends parsing,
// so the rest of the value can carry an operator comment.
func ParseUnicodeBlockList(str string) (*unicode.RangeTable, error) {
	fields := strings.Fields(str)
	parsed := make([]restrictedRange, 0, len(fields))

	for _, tok := range fields {
		if tok == "//" {
			break
		}
		r, err := parseRestrictedRange(tok)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, r)
	}

	sort.Slice(parsed, func(i, j int) bool {
		if parsed[i].low != parsed[j].low {
			return parsed[i].low < parsed[j].low
		}
		if parsed[i].high != parsed[j].high {
			return parsed[i].high < parsed[j].high
		}
		return parsed[i].stride < parsed[j].stride
	})

	rt := &unicode.RangeTable{}
	for _, r := range parsed {
		switch {
		case r.high <= unicode.MaxLatin1:
			rt.LatinOffset++
			fallthrough
		case r.high <= math.MaxUint16:
			rt.R16 = append(rt.R16, unicode.Range16{
				Lo:     uint16(r.low),
				Hi:     uint16(r.high),
				Stride: uint16(r.stride),
			})
		case r.high <= math.MaxUint32:
			rt.R32 = append(rt.R32, unicode.Range32{
				Lo:     r.low,
				Hi:     r.high,
				Stride: r.stride,
			})
		default:
			return nil, errRangeOutOfBounds
		}
	}

	return rt, nil
}

// parseRestrictedRange parses one "<low>-<high>[:<stride>]" token,
// accepting either a hyphen-minus or an en dash as the range separator.
func parseRestrictedRange(tok string) (restrictedRange, error) {
	rangePart, strideTok, hasStride := strings.Cut(tok, ":")

	lowTok, highTok, ok := splitRange(rangePart)
	if !ok {
		return restrictedRange{}, blockListParseError(errUnexpectedRange.Error() + tok)
	}

	low, err := strconv.ParseUint(strings.TrimLeft(lowTok, "uU+x"), 16, 32)
	if err != nil {
		return restrictedRange{}, blockListParseError(errUnexpectedRange.Error() + tok)
	}
	high, err := strconv.ParseUint(strings.TrimLeft(highTok, "uU+x"), 16, 32)
	if err != nil {
		return restrictedRange{}, blockListParseError(errUnexpectedRange.Error() + tok)
	}

	stride := uint64(1)
	if hasStride {
		stride, err = strconv.ParseUint(strideTok, 10, 32)
		if err != nil {
			return restrictedRange{}, blockListParseError(errUnexpectedRange.Error() + tok)
		}
	}

	return restrictedRange{low: uint32(low), high: uint32(high), stride: uint32(stride)}, nil
}

// splitRange splits "<low>-<high>" (or the en-dash variant) into its
// two halves.
func splitRange(s string) (low, high string, ok bool) {
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		return s[:idx], s[idx+1:], true
	}
	if idx := strings.Index(s, "–"); idx >= 0 {
		return s[:idx], s[idx+len("–"):], true
	}
	return "", "", false
}
