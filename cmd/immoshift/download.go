package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/immoshift/immoshift-web/internal/leadform"
	"github.com/immoshift/immoshift-web/internal/metrics"
)

var (
	flagFirstName string
	flagLastName  string
	flagEmail     string
	flagPhone     string
	flagConsent   bool
	flagDir       string
)

var downloadCmd = &cobra.Command{
	Use:   "download <ebook-slug>",
	Short: "Submit the e-book lead form and download the file",
	Long: `Submit the lead form of an e-book exactly as the site does, then download
the returned file into the output directory.

Example:
  immoshift download guide-du-primo --first-name Léa --last-name Martin --email lea@example.fr`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&flagFirstName, "first-name", "", "First name")
	downloadCmd.Flags().StringVar(&flagLastName, "last-name", "", "Last name")
	downloadCmd.Flags().StringVar(&flagEmail, "email", "", "E-mail address")
	downloadCmd.Flags().StringVar(&flagPhone, "phone", "", "Phone number (optional)")
	downloadCmd.Flags().BoolVar(&flagConsent, "consent-mailing", false, "Accept the mailing list")
	downloadCmd.Flags().StringVarP(&flagDir, "output-dir", "o", ".", "Directory the file is written to")
}

// capturingNavigator keeps the confirmation state instead of navigating.
type capturingNavigator struct {
	state *leadform.NavigationState
}

func (n *capturingNavigator) Replace(_ context.Context, s leadform.NavigationState) error {
	n.state = &s
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m := metrics.NewMetrics()
	client := newContentClient(cfg, m)
	ctx := cmd.Context()

	ebook, err := client.GetEbook(ctx, args[0])
	if err != nil {
		return err
	}

	nav := &capturingNavigator{}
	ctrl := leadform.NewController(client, nav, leadform.WithMetrics(m))
	res := ctrl.Submit(ctx, leadform.EbookRef{ID: ebook.ID, Title: ebook.Title}, leadform.Form{
		FirstName:      flagFirstName,
		LastName:       flagLastName,
		Email:          flagEmail,
		Phone:          flagPhone,
		ConsentMailing: flagConsent,
	})
	if !res.FieldErrors.Valid() {
		return fieldErrorsError(res.FieldErrors)
	}
	if res.State != leadform.Succeeded {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}

	done := make(chan error, 1)
	conf := leadform.NewConfirmation(*res.Navigation, func(d leadform.Download) {
		done <- saveFile(ctx, d, flagDir)
	})
	conf.Start()
	defer conf.Stop()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "downloaded %q into %s\n", conf.Download().Filename, flagDir)
	return nil
}

func fieldErrorsError(errs leadform.FieldErrors) error {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var all []error
	for _, f := range fields {
		all = append(all, fmt.Errorf("%s: %s", f, errs[f]))
	}
	return errors.Join(all...)
}

// saveFile fetches d.URL into dir under d.Filename.
func saveFile(ctx context.Context, d leadform.Download, dir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", d.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("downloading %s: status %d", d.URL, resp.StatusCode)
	}

	name := strings.NewReplacer("/", "-", `\`, "-").Replace(d.Filename)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}
