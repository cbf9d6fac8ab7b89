package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-retriever/internal/config"
	"github.com/jonathan/resume-retriever/internal/linkextract"
	"github.com/jonathan/resume-retriever/internal/observability"
)

var extractLinkCmd = &cobra.Command{
	Use:   "extract-link",
	Short: "Show which resume link an email yields, without opening a browser",
	RunE:  runExtractLink,
}

var (
	extractLinkEmail      string
	extractLinkVendorHost string
)

func init() {
	extractLinkCmd.Flags().StringVarP(&extractLinkEmail, "email", "e", "", "Email file to inspect (required)")
	extractLinkCmd.Flags().StringVar(&extractLinkVendorHost, "vendor-host", "", "Trusted resume link host")

	if err := extractLinkCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}

	rootCmd.AddCommand(extractLinkCmd)
}

func runExtractLink(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, func(cfg *config.Config) {
		if cmd.Flags().Changed("vendor-host") {
			cfg.VendorHost = extractLinkVendorHost
		}
	})
	if err != nil {
		return err
	}

	body, err := readEmailBody(extractLinkEmail)
	if err != nil {
		return err
	}

	extractor := linkextract.NewExtractor(cfg.VendorHost)
	cand, ok := extractor.Extract(body)
	observability.NewPrinter(cmd.OutOrStdout()).PrintCandidates(cand.Strategy, cand.URL, ok, extractor.Candidates(body))

	if !ok {
		return fmt.Errorf("no resume link found in %s", extractLinkEmail)
	}
	return nil
}
