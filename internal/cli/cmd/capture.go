package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/pkg/format"
)

// newCaptureCmd creates the capture command
func newCaptureCmd() *cobra.Command {
	var (
		html      string
		imagePath string
	)

	cmd := &cobra.Command{
		Use:   "capture [text...]",
		Short: "Push a clipboard snapshot through the capture pipeline",
		Long: `Push a synthetic clipboard snapshot through the same pipeline the daemon
runs for real clipboard changes: classification, URL canonicalization,
debouncing and duplicate suppression. The outcome is printed.

A snapshot may carry text, markup and an image at once; the classifier
picks the representation to store. Use "-" to read the text from stdin.

Examples:
  clipstack capture "https://Example.com."
  clipstack capture --html '<p>Hello <b>world</b></p>' "Hello world"
  clipstack capture --image screenshot.png
  pbpaste | clipstack capture -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := ipc.CaptureArgs{Text: strings.Join(args, " "), HTML: html}
			if len(args) == 1 && args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				snap.Text = string(data)
			}
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				snap.Image = data
			}
			if snap.Text == "" && snap.HTML == "" && len(snap.Image) == 0 {
				return fmt.Errorf("nothing to capture: pass text, --html or --image")
			}

			var res ipc.CaptureData
			if err := call(cmd.Context(), ipc.CmdCapture, snap, &res); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Item != nil:
				opts := displayOptions()
				opts.Compact = true
				fmt.Fprintf(out, "✓ %s: %s\n", res.Outcome, format.FormatItem(res.Item, opts))
			case res.Error != "":
				return fmt.Errorf("capture failed: %s", res.Error)
			default:
				fmt.Fprintf(out, "Not stored: %s\n", res.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&html, "html", "", "markup representation of the snapshot")
	cmd.Flags().StringVar(&imagePath, "image", "", "image file for the snapshot")
	return cmd
}
