// This file is released into the public domain.

// Command seafhttpd runs the streaming multipart upload service as a
// standalone net/http server, the way cmd/caddy hosted the teacher's
// middleware. Collaborators (access/quota/storage/browser) are wired
// to a JSON-over-HTTP backend; point -rpc-base-url at whatever speaks
// that small protocol (see rpcclients.go).
package main

import (
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	upload "blitznote.com/src/seafhttp.upload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr        string
		tempDir           string
		serviceURL        string
		rpcBaseURL        string
		restrictFilenames string
		logPretty         bool
	)

	cmd := &cobra.Command{
		Use:   "seafhttpd",
		Short: "Streaming multipart upload endpoint for a content-addressed file repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(logPretty)

			cfg := upload.Config{
				TempDir:    tempDir,
				ServiceURL: strings.TrimRight(serviceURL, "/"),
			}
			if restrictFilenames != "" {
				rt, err := upload.ParseUnicodeBlockList(restrictFilenames)
				if err != nil {
					return err
				}
				cfg.RestrictFilenamesTo = []*unicode.RangeTable{rt}
			}

			client := newRPCClient(rpcBaseURL, 30*time.Second)

			h, err := upload.NewHandler(cfg, client, client, client, client, log)
			if err != nil {
				return err
			}
			if err := h.LockFilesystem(); err != nil {
				log.Warn().Err(err).Msg("unveil lock failed")
			}

			log.Info().Str("addr", listenAddr).Str("temp_dir", cfg.TempDir).Msg("listening")
			return http.ListenAndServe(listenAddr, h.Router())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&listenAddr, "listen", ":8082", "address to listen on")
	flags.StringVar(&tempDir, "temp-dir", upload.DefaultTempDir, "directory for spooled uploads")
	flags.StringVar(&serviceURL, "service-url", "http://127.0.0.1:8000", "base URL of the web UI, used in redirects")
	flags.StringVar(&rpcBaseURL, "rpc-base-url", "http://127.0.0.1:8083", "base URL of the access/quota/storage/browser RPC backend")
	flags.StringVar(&restrictFilenames, "restrict-filenames", "", "space-delimited Unicode ranges uploaded filenames must stay within, e.g. 'x0000-x007F'")
	flags.BoolVar(&logPretty, "log-pretty", false, "use a human-readable console log writer instead of JSON")

	return cmd
}

func newLogger(pretty bool) zerolog.Logger {
	if !pretty {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}
