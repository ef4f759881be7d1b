package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/FranksOps/uzhunt/internal/candidate"
	"github.com/FranksOps/uzhunt/internal/export"
	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		source   string
		file     string
		xlsx     bool
		noFilter bool
	)

	cmd := &cobra.Command{
		Use:   "check [profile URL...]",
		Short: "Verify the .uz domains for the given profile URLs, skipping the search step",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := candidate.ParseSource(source)
			if err != nil {
				return err
			}

			urls := append([]string(nil), args...)
			if file != "" {
				fromFile, err := readURLFile(file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return errors.New("no URLs given; pass them as arguments or with --file")
			}

			return a.check(cmd, candidate.Batch{Source: src, URLs: urls}, xlsx, noFilter)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", string(candidate.SourceTelegram), "Source of the URLs: telegram or instagram")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read profile URLs from a file, one per line")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Also write an xlsx report to the output directory")
	cmd.Flags().BoolVar(&noFilter, "all", false, "Check every handle, not only those ending in \"uz\"")
	cmd.Flags().IntP("concurrency", "c", 1, "Number of concurrent WHOIS lookups")
	cmd.Flags().Bool("sanitize", false, "Strip characters that are invalid in domain labels from handles")
	a.bind(cmd, "verify.concurrency", "concurrency")
	a.bind(cmd, "verify.sanitize", "sanitize")

	return cmd
}

func (a *app) check(cmd *cobra.Command, batch candidate.Batch, xlsx, all bool) error {
	ctx := cmd.Context()

	var cands []candidate.Candidate
	if all {
		cands = collectAll(batch)
	} else {
		cands = candidate.Collect([]candidate.Batch{batch}, a.logger)
	}
	if len(cands) == 0 {
		a.logger.Info("no qualifying handles, nothing to do", "urls", len(batch.URLs))
		return nil
	}

	backend, err := openBackend(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if backend != nil {
		defer backend.Close()
	}

	start := time.Now()
	records := newVerifier(a.cfg, backend, a.logger).VerifyAll(ctx, cands)

	if err := writeRecords(cmd.OutOrStdout(), records); err != nil {
		return err
	}

	if xlsx {
		path, err := export.SaveFile(a.cfg.Output.Dir, records, start)
		if err != nil {
			return err
		}
		a.logger.Info("report saved", "path", path)
	}
	return ctx.Err()
}

// collectAll dedups handles like candidate.Collect but keeps those that do not end in "uz".
func collectAll(batch candidate.Batch) []candidate.Candidate {
	seen := make(map[string]struct{})
	var out []candidate.Candidate
	for _, raw := range batch.URLs {
		h := candidate.Handle(raw, batch.Source)
		if h == "" {
			continue
		}
		c := candidate.Candidate{Source: batch.Source, Handle: h, OriginURL: raw}
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url file: %w", err)
	}
	return urls, nil
}

func writeRecords(w io.Writer, records []*storage.VerificationRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tSTATUS\tEXPIRY\tCREATED\tREGISTRAR\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Domain, r.Status, dash(r.ExpiryDate), dash(r.CreatedDate), dash(r.Registrar), dash(r.ErrorKind))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
