// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains ProgressEndpoint (§4.G): a read-only JSONP responder over
// the ProgressRegistry.

package upload

import (
	"fmt"
	"net/http"
)

// ProgressEndpoint answers GET /upload_progress?X-Progress-ID=<id>&callback=<cb>.
type ProgressEndpoint struct {
	Registry *ProgressRegistry
}

func (p ProgressEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("X-Progress-ID")
	if id == "" {
		http.Error(w, "Progress id not found", http.StatusBadRequest)
		return
	}
	callback := r.URL.Query().Get("callback")
	if callback == "" {
		http.Error(w, "callback not found", http.StatusBadRequest)
		return
	}

	counter, err := p.Registry.Snapshot(id)
	if err != nil {
		http.Error(w, "No progress found for this id", http.StatusBadRequest)
		return
	}

	fmt.Fprintf(w, "%s({\"uploaded\": %d, \"length\": %d});", callback, counter.Uploaded, counter.Total)
}
