// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains RedirectResponders (§4.H): 302 responses pointing at the
// external web UI's success/error pages.

package upload

import (
	"fmt"
	"net/http"
	"net/url"
)

// RedirectResponders builds Location headers against the configured
// web UI base URL.
type RedirectResponders struct {
	ServiceURL string
}

// Success redirects to the repo directory page after a completed
// upload or update.
func (r RedirectResponders) Success(w http.ResponseWriter, repoID, parentDir string) {
	loc := fmt.Sprintf("%s/repo/%s?p=%s", r.ServiceURL, repoID, url.QueryEscape(parentDir))
	w.Header().Set("Location", loc)
	w.WriteHeader(http.StatusFound)
}

// UploadError redirects to the upload-error page with the file name
// and numeric error code.
func (r RedirectResponders) UploadError(w http.ResponseWriter, repoID, parentDir, fileName string, code UploadErrorCode) {
	loc := fmt.Sprintf("%s/repo/upload_error/%s?p=%s&fn=%s&err=%d",
		r.ServiceURL, repoID, url.QueryEscape(parentDir), url.QueryEscape(fileName), code)
	w.Header().Set("Location", loc)
	w.WriteHeader(http.StatusFound)
}

// UpdateError redirects to the update-error page.
func (r RedirectResponders) UpdateError(w http.ResponseWriter, repoID, targetFile string, code UploadErrorCode) {
	loc := fmt.Sprintf("%s/repo/update_error/%s?p=%s&err=%d",
		r.ServiceURL, repoID, url.QueryEscape(targetFile), code)
	w.Header().Set("Location", loc)
	w.WriteHeader(http.StatusFound)
}
