package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <home|article|training|ebook> [slug]",
	Short: "Fetch and print a normalized content record",
	Long: `Fetch a record from the content API, normalize it and print the view
model as JSON. Media URLs are printed resolved.

Examples:
  immoshift fetch home
  immoshift fetch article investir-dans-l-immobilier-locatif`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"home", "article", "training", "ebook"},
	RunE:      runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	kind := args[0]
	slug := ""
	if len(args) == 2 {
		slug = args[1]
	}
	if kind != "home" && slug == "" {
		return fmt.Errorf("fetch %s requires a slug", kind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newContentClient(cfg, nil)
	ctx := cmd.Context()

	var v interface{}
	switch kind {
	case "home":
		v, err = client.GetHome(ctx)
	case "article":
		v, err = client.GetArticle(ctx, slug)
	case "training":
		v, err = client.GetTraining(ctx, slug)
	case "ebook":
		v, err = client.GetEbook(ctx, slug)
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
