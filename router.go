// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Thin glue around chi, isolated so handler.go stays router-agnostic.
// The teacher matched path prefixes itself (middleware.Path(...).Matches)
// because it ran as Caddy middleware; standalone here, chi's URL-param
// routing does the same job for {token}.

package upload

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func newChiRouter() chi.Router {
	return chi.NewRouter()
}

func chiURLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
