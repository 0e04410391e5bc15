package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/your-org/mediaintake/internal/artifact"
	"github.com/your-org/mediaintake/internal/bootstrap"
	"github.com/your-org/mediaintake/internal/intake"
	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [files...]",
		Short: "Process files and report one result per file",
		Long: `Process runs the given files as one batch. Files that fail validation are
reported with their error code; they do not stop the rest of the batch.`,
		RunE: runProcess,
	}
	cmd.Flags().StringP("rules", "r", "", "YAML rules file (default INTAKE_RULES_FILE)")
	cmd.Flags().StringP("kind", "k", "", "Treat every file as this kind instead of classifying")
	cmd.Flags().StringP("out", "o", "", "Directory to write processed files and thumbnails to")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().Bool("progress", false, "Print progress events to stderr")
	cmd.Flags().Bool("stdin", false, "Read file paths from stdin, one per line")
	cmd.Flags().Bool("publish", false, "Publish result events to Kafka when KAFKA_ENABLED is set")
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logr, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	rulesPath, _ := cmd.Flags().GetString("rules")
	kindName, _ := cmd.Flags().GetString("kind")
	outDir, _ := cmd.Flags().GetString("out")
	asJSON, _ := cmd.Flags().GetBool("json")
	showProgress, _ := cmd.Flags().GetBool("progress")
	fromStdin, _ := cmd.Flags().GetBool("stdin")
	publish, _ := cmd.Flags().GetBool("publish")

	var opts intake.Options
	if rulesPath != "" {
		loaded, err := rules.LoadFile(rulesPath)
		if err != nil {
			return err
		}
		opts.Rules = loaded
	}
	if showProgress {
		stderr := cmd.ErrOrStderr()
		opts.OnProgress = func(e intake.ProgressEvent) {
			fmt.Fprintf(stderr, "[%d/%d] %5.1f%% %-20s %s\n", e.CurrentFileIndex, e.TotalFiles, e.Percentage, e.Stage, e.FileName)
		}
	}

	rt, err := bootstrap.New(cfg, logr, bootstrap.Options{DisableEvents: !publish})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer rt.Close(ctx) //nolint:errcheck

	sel := pathSelector(args)
	if fromStdin {
		sel = stdinSelector(cmd.InOrStdin())
	}

	var results []intake.Result
	if kindName != "" {
		kind, err := media.ParseKind(kindName)
		if err != nil || kind == media.Generic {
			return fmt.Errorf("unknown kind %q", kindName)
		}
		files, err := sel.Select(ctx)
		switch {
		case errors.Is(err, intake.ErrSelectionCanceled):
		case err != nil:
			return err
		default:
			if results, err = processKind(ctx, rt.Service, kind, files, opts); err != nil {
				return err
			}
		}
	} else {
		results, err = rt.Service.ProcessSelection(ctx, sel, opts)
		if err != nil {
			return err
		}
	}
	defer intake.Release(ctx, results) //nolint:errcheck

	if len(results) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "nothing selected")
		return nil
	}
	if outDir != "" {
		if err := writeArtifacts(outDir, results); err != nil {
			return err
		}
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return printResults(cmd.OutOrStdout(), results)
}

func processKind(ctx context.Context, svc *intake.Service, kind media.Kind, files []*media.File, opts intake.Options) ([]intake.Result, error) {
	switch kind {
	case media.Image:
		return svc.ProcessImages(ctx, files, opts)
	case media.Video:
		return svc.ProcessVideos(ctx, files, opts)
	case media.Audio:
		return svc.ProcessAudioFiles(ctx, files, opts)
	case media.Document:
		return svc.ProcessDocuments(ctx, files, opts)
	default:
		return svc.ProcessArchives(ctx, files, opts)
	}
}

func pathSelector(paths []string) intake.Selector {
	return intake.SelectorFunc(func(context.Context) ([]*media.File, error) {
		if len(paths) == 0 {
			return nil, intake.ErrSelectionCanceled
		}
		files := make([]*media.File, 0, len(paths))
		for _, p := range paths {
			f, err := media.ReadFile(p)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
		return files, nil
	})
}

func stdinSelector(r io.Reader) intake.Selector {
	return intake.SelectorFunc(func(ctx context.Context) ([]*media.File, error) {
		var paths []string
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				paths = append(paths, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read paths: %w", err)
		}
		return pathSelector(paths).Select(ctx)
	})
}

func writeArtifacts(dir string, results []intake.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		arts := []*artifact.Artifact{r.Processed}
		if r.Thumbnail != nil {
			arts = append(arts, r.Thumbnail)
		}
		for _, a := range arts {
			if err := os.WriteFile(filepath.Join(dir, filepath.Base(a.Name)), a.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", a.Name, err)
			}
		}
	}
	return nil
}

func printResults(w io.Writer, results []intake.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tKIND\tSIZE\tSTATUS\tDETAIL")
	for _, r := range results {
		detail := ""
		switch {
		case r.Failure != nil:
			detail = string(r.Failure.Code) + ": " + r.Failure.Message
		case r.Processed != nil:
			detail = fmt.Sprintf("%s (%s)", r.Processed.Name, humanize.Bytes(uint64(r.Processed.SizeBytes)))
			if r.Thumbnail != nil {
				detail += ", thumbnail " + r.Thumbnail.Name
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Source.Name, r.Kind, humanize.Bytes(uint64(r.Source.SizeBytes)), r.Status, detail)
	}
	return tw.Flush()
}
