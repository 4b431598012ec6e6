package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/logger/console"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"
	"github.com/slidescribe/backend/pkg/transcript"

	"github.com/spf13/cobra"
)

type dumpOptions struct {
	outDir             string
	concurrency        int
	elementConcurrency int
	quality            int
	stats              bool
	pretty             bool
	debug              bool
	groupSize          int
}

type dumpResult struct {
	File   string         `json:"file"`
	Slides []pptx.Slide   `json:"slides"`
	Stats  *pptx.Stats    `json:"stats,omitempty"`
	Groups [][]pptx.Slide `json:"groups,omitempty"`
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := dumpOptions{}

	cmd := &cobra.Command{
		Use:   "pptxdump <file.pptx>...",
		Short: "Extract the text and images of presentations as JSON",
		Long: `pptxdump extracts the slides of one or more .pptx files and prints them
as JSON. Images are converted to JPEG and written to a subdirectory of the
output directory named after each file; image elements reference the
written files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  opts.debug,
				Prefix: "pptxdump",
				Output: cmd.ErrOrStderr(),
			}))
			return runDump(cmd, out, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", media.DefaultOutputDir, "Directory normalized images are written to")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", pptx.DefaultConcurrency, "Slides processed in parallel")
	cmd.Flags().IntVar(&opts.elementConcurrency, "element-concurrency", pptx.DefaultElementConcurrency, "Images per slide normalized in parallel")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", media.DefaultJPEGQuality, "JPEG quality for converted images (1-100)")
	cmd.Flags().BoolVarP(&opts.stats, "stats", "s", false, "Include extraction statistics")
	cmd.Flags().BoolVarP(&opts.pretty, "pretty", "p", false, "Indent JSON output")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Log skipped elements")
	cmd.Flags().IntVarP(&opts.groupSize, "group-size", "g", 0, "Also print the slide groups a transcript run would send")

	return cmd
}

func runDump(cmd *cobra.Command, out io.Writer, files []string, opts dumpOptions) error {
	if opts.quality < 1 || opts.quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", opts.quality)
	}

	extractor := pptx.NewExtractor(pptx.Options{
		Concurrency:        opts.concurrency,
		ElementConcurrency: opts.elementConcurrency,
		Normalizer: media.NewNormalizer(
			media.NewFileStore(opts.outDir),
			media.WithQuality(opts.quality),
		),
	})

	results := make([]dumpResult, 0, len(files))
	scopes := make(map[string]int, len(files))
	for _, file := range files {
		scoped, err := extractor.Scope(fileScope(file, scopes))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		res, err := scoped.RunFile(cmd.Context(), file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		r := dumpResult{File: file, Slides: res.Slides}
		if opts.stats {
			r.Stats = &res.Stats
		}
		if opts.groupSize > 0 {
			r.Groups = transcript.GroupSlides(res.Slides, opts.groupSize)
		}
		results = append(results, r)
	}

	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

// fileScope names the image subdirectory of file: its base name without
// extension, numbered when an earlier file of the run had the same name.
func fileScope(file string, seen map[string]int) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if name == "" || name == "." || name == ".." {
		name = "deck"
	}
	seen[name]++
	if n := seen[name]; n > 1 {
		return fmt.Sprintf("%s-%d", name, n)
	}
	return name
}
