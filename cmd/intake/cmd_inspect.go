package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/pkg/ffmpeg"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify files...",
		Short: "Show the detected MIME type and media kind of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tMIME\tKIND")
			for _, path := range args {
				f, err := media.ReadFile(path)
				if err != nil {
					return err
				}
				d := media.NewDescriptor(f)
				kind := "unknown"
				if k, err := media.Classify(d); err == nil {
					kind = k.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.MimeType, kind)
			}
			return tw.Flush()
		},
	}
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe file",
		Short: "Print ffprobe metadata for a video or audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			ffmpeg.Configure(ffmpeg.Config{
				FFmpegPath:  cfg.Intake.FFmpegPath,
				FFprobePath: cfg.Intake.FFprobePath,
				TempDir:     cfg.Intake.TempDir,
				Logger:      logr,
			})
			defer ffmpeg.Reset()

			f, err := media.ReadFile(args[0])
			if err != nil {
				return err
			}
			eng, err := ffmpeg.Shared(cmd.Context())
			if err != nil {
				return err
			}
			meta, err := eng.Probe(cmd.Context(), f.Data, f.Name)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}
