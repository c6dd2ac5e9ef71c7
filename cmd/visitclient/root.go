package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	server  string
	timeout time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "visitclient",
		Short: "Transcribe clinic visit recordings and generate patient reports",
		Long: `visitclient talks to a running clinical visit service.

It uploads an MP3 recording for transcription, requests the structured facts
and patient report for a transcript, or does both in one go.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "Base URL of the clinical visit service")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall timeout per request")

	cmd.AddCommand(newTranscribeCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newRunCommand(opts))

	return cmd
}

func (o *rootOptions) client() *apiClient {
	return newAPIClient(o.server, &http.Client{Timeout: o.timeout})
}
