package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinapav47-ux/igramrelay/internal/classifier"
	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/relay"
)

// resolveCmd classifies and, if needed, scrapes one link and prints the media URL. It does not
// download anything and needs no bot token.
func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a link to its direct media URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			cls, err := buildClassifier(cfg, logger)
			if err != nil {
				return err
			}

			res := cls.Classify(args[0])
			target := domain.ScrapeResult{MediaURL: res.URL, MediaType: domain.MediaUnknown}
			switch res.Decision {
			case classifier.Rejected:
				return fmt.Errorf("%q: %w", args[0], domain.ErrInvalidInput)
			case classifier.NeedsScrape:
				scr, stop, err := buildScraper(cfg, nil, logger)
				if err != nil {
					return err
				}
				defer stop()
				target, err = scr.Scrape(cmd.Context(), res.URL)
				if err != nil {
					return err
				}
			}
			if err := target.Validate(); err != nil {
				return err
			}

			kind := "decided by content type"
			ext := domain.URLExtension(target.MediaURL)
			if k, err := relay.ResolveKind(ext, "", target.MediaType); err == nil {
				kind = string(k)
			} else if ext != "" {
				kind = err.Error()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "decision: %s\n", res.Decision)
			fmt.Fprintf(out, "media_url: %s\n", target.MediaURL)
			fmt.Fprintf(out, "hint: %s\n", target.MediaType)
			fmt.Fprintf(out, "kind: %s\n", kind)
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}
