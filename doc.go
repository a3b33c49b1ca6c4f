// Package upload implements a streaming HTTP multipart upload endpoint
// for a content-addressed file repository service.
//
// It parses multipart/form-data bodies as bytes arrive, without
// buffering the whole body in memory, spools the "file" part to a
// temporary on-disk location, and on full receipt hands the spooled
// path to an external repository RPC (PostFile for new uploads,
// PutFile for in-place updates). A process-wide ProgressRegistry tracks
// per-upload byte progress, observable through a JSONP polling
// endpoint.
//
// Requests authenticate via a short-lived URL token resolved through
// the AccessAuthority collaborator:
//
//	POST /upload/<token>?X-Progress-ID=<uuid>
//	POST /update/<token>?X-Progress-ID=<uuid>
//	GET  /upload_progress?X-Progress-ID=<uuid>&callback=<fn>
package upload // import "blitznote.com/src/seafhttp.upload"
