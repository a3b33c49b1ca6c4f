// This file is released into the public domain.

// rpcClient implements upload.AccessAuthority, upload.QuotaAuthority,
// upload.Storage and upload.RepoBrowser against a small JSON-over-HTTP
// backend. This is the concrete edge of the "external collaborators"
// the design treats as fixed interfaces (§6) — swap this file out for
// whatever actually talks to the repository/quota/access services.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	upload "blitznote.com/src/seafhttp.upload"
)

type rpcClient struct {
	baseURL string
	http    *http.Client
}

func newRPCClient(baseURL string, timeout time.Duration) *rpcClient {
	return &rpcClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *rpcClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "build rpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "rpc request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return errors.New(e.Error)
		}
		return errors.Errorf("rpc %s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// QueryAccessToken implements upload.AccessAuthority.
func (c *rpcClient) QueryAccessToken(ctx context.Context, token string) (repoID, user string, err error) {
	var resp struct {
		RepoID string `json:"repo_id"`
		User   string `json:"user"`
	}
	if err := c.postJSON(ctx, "/query_access_token", map[string]string{"token": token}, &resp); err != nil {
		return "", "", errors.Wrap(upload.ErrAccessDenied, err.Error())
	}
	return resp.RepoID, resp.User, nil
}

// CheckQuota implements upload.QuotaAuthority.
func (c *rpcClient) CheckQuota(ctx context.Context, repoID string) error {
	if err := c.postJSON(ctx, "/check_quota", map[string]string{"repo_id": repoID}, nil); err != nil {
		return errors.Wrap(upload.ErrQuotaExceeded, err.Error())
	}
	return nil
}

// PostFile implements upload.Storage.
func (c *rpcClient) PostFile(ctx context.Context, repoID, srcPath, parentDir, name, user string) error {
	return c.postJSON(ctx, "/post_file", map[string]string{
		"repo_id": repoID, "src_path": srcPath, "parent_dir": parentDir, "name": name, "user": user,
	}, nil)
}

// PutFile implements upload.Storage.
func (c *rpcClient) PutFile(ctx context.Context, repoID, srcPath, parentDir, name, user string) error {
	return c.postJSON(ctx, "/put_file", map[string]string{
		"repo_id": repoID, "src_path": srcPath, "parent_dir": parentDir, "name": name, "user": user,
	}, nil)
}

// HeadDirListing implements upload.RepoBrowser.
func (c *rpcClient) HeadDirListing(ctx context.Context, repoID, parentDir string) ([]upload.DirEntry, bool) {
	var resp struct {
		Entries []upload.DirEntry `json:"entries"`
	}
	if err := c.postJSON(ctx, "/head_dir_listing", map[string]string{"repo_id": repoID, "parent_dir": parentDir}, &resp); err != nil {
		return nil, false
	}
	return resp.Entries, true
}
