// Command narrate runs plant narrations against a Gradio app from the shell.
//
// Usage:
//
//	narrate generate --url http://localhost:7860   # Submit and fetch a narration
//	narrate predict --url http://localhost:7860    # Single call endpoint
//	narrate version                                # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"narrator/cfg"
	"narrator/pkg/gradio"

	"github.com/spf13/cobra"
)

// set at build time via -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "narrate",
		Short: "Generate plant narrations with a Gradio app",
		Long: `narrate sends plant details to a Gradio narration app and prints the
generated audio URL and narration text.

The app address is taken from --url first, then the GRADIO_URL environment
variable, then gradio.url in the --config file.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("url", "u", "", "base address of the Gradio app")
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "timeout of the whole run")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress to stderr")

	rootCmd.AddCommand(newGenerateCmd(), newPredictCmd(), newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "narrate %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func newGradioClient(cmd *cobra.Command) (*gradio.Client, error) {
	var gradioCfg gradio.Config
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		cfg, err := cfg.Read(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		gradioCfg = cfg.Gradio
		if !cmd.Flags().Changed("timeout") {
			timeout = cfg.HTTPTimeout
		}
	}

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		gradioCfg.URL = url
	}

	if gradioCfg.URL == "" {
		gradioCfg.URL = os.Getenv("GRADIO_URL")
	}

	if gradioCfg.URL == "" {
		return nil, fmt.Errorf("no gradio app address, pass --url, set GRADIO_URL or use --config")
	}

	return gradio.New(&http.Client{Timeout: timeout}, &gradioCfg), nil
}

func printLines(w io.Writer, lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func main() {
	// cobra prints the error as "Error: <msg>"
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
