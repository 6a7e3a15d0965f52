package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/immoshift/immoshift-web/internal/placeholder"
)

var (
	flagTitle   string
	flagWidth   int
	flagHeight  int
	flagOut     string
	flagDataURI bool
)

var placeholderCmd = &cobra.Command{
	Use:   "placeholder",
	Short: "Render a placeholder title card",
	Long: `Render the placeholder card shown for an article without image.

Examples:
  immoshift placeholder --title "Investir dans l'immobilier locatif" -o card.png
  immoshift placeholder --title "Immoshift" --width 1200 --height 630 --data-uri`,
	Args: cobra.NoArgs,
	RunE: runPlaceholder,
}

func init() {
	rootCmd.AddCommand(placeholderCmd)

	placeholderCmd.Flags().StringVar(&flagTitle, "title", "", "Card title")
	placeholderCmd.Flags().IntVar(&flagWidth, "width", placeholder.DefaultWidth, "Card width in pixels")
	placeholderCmd.Flags().IntVar(&flagHeight, "height", placeholder.DefaultHeight, "Card height in pixels")
	placeholderCmd.Flags().StringVarP(&flagOut, "output", "o", "-", "Output file, - for stdout")
	placeholderCmd.Flags().BoolVar(&flagDataURI, "data-uri", false, "Print a base64 data URI instead of PNG bytes")
}

func runPlaceholder(cmd *cobra.Command, _ []string) error {
	gen := placeholder.New()
	png, err := gen.Render(flagTitle, flagWidth, flagHeight)
	if err != nil {
		return fmt.Errorf("rendering placeholder: %w", err)
	}

	out := png
	if flagDataURI {
		out = []byte(gen.DataURI(flagTitle, flagWidth, flagHeight) + "\n")
	}

	if flagOut == "-" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(flagOut, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", flagOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", flagOut, len(out))
	return nil
}
