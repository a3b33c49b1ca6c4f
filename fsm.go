// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains MultipartFSM, the byte-driven parser for multipart/form-data
// bodies described in §4.B. It is a pure function of (state, buffered
// bytes) → (new state, side effects performed through its Sink),
// independent of any HTTP plumbing, so it can be fed from a push-style
// callback or a pull-style io.Reader loop alike.

package upload

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

type fsmState int

const (
	stateInit fsmState = iota
	stateHeaders
	stateContent
	stateError
)

// ErrBadRequest marks a malformed-input failure: the caller should
// respond 400 and stop reading.
var ErrBadRequest = errors.New("malformed multipart body")

// ErrSpoolFailed marks a resource failure opening or writing the spool:
// the caller should respond 500 and stop reading.
var ErrSpoolFailed = errors.New("failed to spool upload")

// Sink receives the side effects the FSM produces while draining a
// part: form field assignments and file-payload writes. It is
// implemented by UploadSession (§4.E).
type Sink interface {
	// OnFieldValue is called for each content line of a non-file
	// field; the last call for a name wins.
	OnFieldValue(name, value string)
	// OnFileHeader is called when the "file" part's headers are fully
	// parsed (blank line reached), before any content arrives.
	OnFileHeader(fileName string) error
	// OnFileBytes is called with payload bytes belonging to the "file"
	// part, already stripped of the terminal CRLF that precedes the
	// boundary (the "one-line-behind" discipline, §4.B).
	OnFileBytes(p []byte) error
}

// MultipartFSM parses an RFC 2046-style multipart body delivered as a
// stream of arbitrarily-sized chunks.
type MultipartFSM struct {
	state    fsmState
	boundary string
	sink     Sink

	inputName string
	fileName  string

	line        bytes.Buffer
	recvedCRLF  bool
}

// NewMultipartFSM creates a parser for a body bounded by boundary,
// emitting to sink.
func NewMultipartFSM(boundary string, sink Sink) *MultipartFSM {
	return &MultipartFSM{
		state:    stateInit,
		boundary: boundary,
		sink:     sink,
	}
}

// Feed appends chunk to the internal line buffer and drains as many
// complete lines as are available, driving state transitions. It never
// buffers more than one partial line (plus up to MaxContentLine bytes
// of file payload before a forced flush).
func (f *MultipartFSM) Feed(chunk []byte) error {
	if f.state == stateError {
		return nil
	}

	f.line.Write(chunk)

	for {
		switch f.state {
		case stateInit:
			line, ok := f.readLine()
			if !ok {
				return nil
			}
			if !strings.Contains(line, f.boundary) {
				f.state = stateError
				return errors.Wrap(ErrBadRequest, "no boundary found in first line")
			}
			f.state = stateHeaders

		case stateHeaders:
			line, ok := f.readLine()
			if !ok {
				return nil
			}
			if line == "" {
				if f.inputName == "file" {
					if err := f.sink.OnFileHeader(f.fileName); err != nil {
						f.state = stateError
						if errors.Cause(err) == errDisallowedFilename {
							return errors.Wrap(ErrBadRequest, err.Error())
						}
						return errors.Wrap(ErrSpoolFailed, err.Error())
					}
				}
				f.state = stateContent
				continue
			}
			if err := f.parseMIMEHeader(line); err != nil {
				f.state = stateError
				return errors.Wrap(ErrBadRequest, err.Error())
			}

		case stateContent:
			done, err := f.drainContent()
			if err != nil {
				f.state = stateError
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// readLine extracts one CRLF-terminated line from f.line, without its
// terminator. Returns ok=false if no complete line is buffered yet.
func (f *MultipartFSM) readLine() (string, bool) {
	b := f.line.Bytes()
	idx := bytes.Index(b, []byte("\r\n"))
	if idx < 0 {
		return "", false
	}
	line := string(b[:idx])
	f.line.Next(idx + 2)
	return line, true
}

// drainContent handles the CONTENT state's two sub-behaviors
// (non-file field vs. file field), returning done=true when no more
// work can be done with the currently buffered bytes.
func (f *MultipartFSM) drainContent() (done bool, err error) {
	if f.inputName != "file" {
		line, ok := f.readLine()
		if !ok {
			return true, nil
		}
		if strings.Contains(line, f.boundary) {
			f.inputName = ""
			f.state = stateHeaders
			return false, nil
		}
		f.sink.OnFieldValue(f.inputName, line)
		return false, nil
	}

	line, ok := f.readLine()
	if !ok {
		if f.line.Len() >= MaxContentLine {
			if err := f.flushFilePayload(); err != nil {
				return true, errors.Wrap(ErrSpoolFailed, err.Error())
			}
		}
		return true, nil
	}
	if strings.Contains(line, f.boundary) {
		f.inputName = ""
		f.state = stateHeaders
		return false, nil
	}

	if f.recvedCRLF {
		if err := f.sink.OnFileBytes([]byte("\r\n")); err != nil {
			return true, errors.Wrap(ErrSpoolFailed, err.Error())
		}
	}
	if err := f.sink.OnFileBytes([]byte(line)); err != nil {
		return true, errors.Wrap(ErrSpoolFailed, err.Error())
	}
	f.recvedCRLF = true
	return false, nil
}

// flushFilePayload writes out the buffer's content when no complete
// line has appeared but the buffer has grown past MaxContentLine. It
// is safe to assume no real boundary line is this long.
func (f *MultipartFSM) flushFilePayload() error {
	if f.recvedCRLF {
		if err := f.sink.OnFileBytes([]byte("\r\n")); err != nil {
			return err
		}
	}
	if f.line.Len() > 0 {
		if err := f.sink.OnFileBytes(f.line.Bytes()); err != nil {
			return err
		}
		f.line.Reset()
	}
	f.recvedCRLF = false
	return nil
}

// parseMIMEHeader accepts only Content-Disposition, per §4.B. Other
// headers (including Content-Type) are ignored.
func (f *MultipartFSM) parseMIMEHeader(header string) error {
	colon := strings.IndexByte(header, ':')
	if colon < 0 {
		return errors.New("bad mime header format")
	}
	name := header[:colon]
	if name != "Content-Disposition" {
		return nil
	}

	params := strings.Split(header[colon+1:], ";")
	for i := range params {
		params[i] = strings.TrimSpace(params[i])
	}
	if len(params) < 2 {
		return errors.New("too few params for Content-Disposition")
	}
	if !strings.EqualFold(params[0], "form-data") {
		return errors.New("invalid Content-Disposition")
	}

	var inputName string
	for _, p := range params {
		if strings.HasPrefix(strings.ToLower(p), "name") {
			v, err := mimeParamValue(p)
			if err != nil {
				return err
			}
			inputName = v
			break
		}
	}
	if inputName == "" {
		return errors.New("no input-name given")
	}
	f.inputName = inputName

	if inputName == "file" {
		var fileName string
		for _, p := range params {
			if strings.HasPrefix(strings.ToLower(p), "filename") {
				v, err := mimeParamValue(p)
				if err != nil {
					return err
				}
				fileName = v
				break
			}
		}
		if fileName == "" {
			return errors.New("no filename given")
		}
		f.fileName = fileName
	}

	return nil
}

// mimeParamValue extracts the quoted value of a "key=\"value\"" param.
func mimeParamValue(param string) (string, error) {
	first := strings.IndexByte(param, '"')
	last := strings.LastIndexByte(param, '"')
	if first < 0 || last < 0 || first == last {
		return "", errors.Errorf("invalid mime param %q", param)
	}
	return param[first+1 : last], nil
}
