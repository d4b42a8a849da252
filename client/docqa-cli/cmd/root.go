package cmd

import (
	"fmt"
	"os"
	"time"

	"DocQA/backend/go/pkg/docqaclient"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "docqa",
	Short:        "A CLI client for the document QA service",
	Long:         `A command-line interface for uploading a document and asking questions about it.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("DOCQA_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "document QA service URL (env DOCQA_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline for a command")
}

func newClient() (*docqaclient.Client, error) {
	// CLI 只发单次请求，不需要熔断
	return docqaclient.New(serverURL)
}
