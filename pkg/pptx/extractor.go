package pptx

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/media"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency        = 10
	DefaultElementConcurrency = 4
)

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ImageNormalizer turns an image found in the package into a durable reference.
// *media.Normalizer is the production implementation.
type ImageNormalizer interface {
	Normalize(ctx context.Context, src media.Source) (media.NormalizedImage, error)
}

// Options configures an Extractor. Zero values select the defaults.
type Options struct {
	// Concurrency bounds how many slides are processed at once.
	Concurrency int
	// ElementConcurrency bounds how many images of one slide are normalized at once.
	ElementConcurrency int
	// Normalizer receives every resolved image. Defaults to a media.Normalizer
	// writing to media.DefaultOutputDir.
	Normalizer ImageNormalizer
	// Limits bounds decompression in ExtractFile and ExtractBytes.
	Limits ArchiveLimits
}

// Result is the outcome of one extraction run.
type Result struct {
	Slides []Slide `json:"slides"`
	Stats  Stats   `json:"stats"`
}

// Extractor assembles the slides of a presentation package. It holds no
// per-run state and may be shared between goroutines.
type Extractor struct {
	concurrency        int
	elementConcurrency int
	normalizer         ImageNormalizer
	limits             ArchiveLimits
}

// NewExtractor returns an Extractor configured by opts.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		concurrency:        opts.Concurrency,
		elementConcurrency: opts.ElementConcurrency,
		normalizer:         opts.Normalizer,
		limits:             opts.Limits.normalize(),
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.elementConcurrency <= 0 {
		e.elementConcurrency = DefaultElementConcurrency
	}
	if e.normalizer == nil {
		e.normalizer = media.NewNormalizer(media.NewFileStore(media.DefaultOutputDir))
	}
	return e
}

// Scope returns a copy of e whose images are written to the part of its store
// reserved for scope. Runs of different scopes never share an output file,
// even when their images have the same name. Only *media.Normalizer supports
// scoping.
func (e *Extractor) Scope(scope string) (*Extractor, error) {
	n, ok := e.normalizer.(*media.Normalizer)
	if !ok {
		return nil, fmt.Errorf("normalizer %T cannot be scoped", e.normalizer)
	}
	scoped, err := n.Scope(scope)
	if err != nil {
		return nil, err
	}
	c := *e
	c.normalizer = scoped
	return &c, nil
}

// ExtractFile opens the package at path and extracts its slides.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Slide, error) {
	res, err := e.RunFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.Slides, nil
}

// ExtractBytes opens a package held in memory and extracts its slides.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) ([]Slide, error) {
	res, err := e.RunBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	return res.Slides, nil
}

// Extract returns the slides of archive sorted by slide number.
func (e *Extractor) Extract(ctx context.Context, archive *Archive) ([]Slide, error) {
	res, err := e.Run(ctx, archive)
	if err != nil {
		return nil, err
	}
	return res.Slides, nil
}

// RunFile is Run on the package at path.
func (e *Extractor) RunFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	archive, err := openFileWithLimits(path, e.limits)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, archive)
}

// RunBytes is Run on a package held in memory.
func (e *Extractor) RunBytes(ctx context.Context, data []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	archive, err := OpenWithLimits(data, e.limits)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, archive)
}

// Run extracts every slide of archive. Slides whose shape tree is malformed are
// dropped and images that cannot be resolved or normalized are skipped; both
// are logged and counted in the returned Stats. The only errors returned are
// those of ctx.
func (e *Extractor) Run(ctx context.Context, archive *Archive) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &counters{}
	rels, _ := resolveRelationships(ctx, archive, stats)

	entries := slideEntries(archive)
	for range entries {
		stats.inc(statSlidesFound)
	}

	slots := make([]*Slide, len(entries))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, se := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			slide, err := e.extractSlide(ctx, archive, rels, se, stats)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				stats.inc(statSlidesDropped)
				logger.Warn("[PPTX] Dropping slide", "slide", se.number, "entry", se.entry, "err", err)
				return nil
			}

			slots[i] = slide
			stats.inc(statSlidesExtracted)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slides := make([]Slide, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			slides = append(slides, *s)
		}
	}

	res := &Result{Slides: slides, Stats: stats.snapshot()}
	logger.Debug("[PPTX] Extraction finished",
		"slides", len(slides),
		"dropped", res.Stats.SlidesDropped,
		"skipped", res.Stats.Skipped(),
	)
	return res, nil
}

type slideEntry struct {
	number int
	entry  string
}

// slideEntries lists the slide parts ordered by slide number. When two parts
// claim the same number (slide1.xml and slide01.xml) the canonical spelling
// wins, otherwise the lexically first one.
func slideEntries(archive *Archive) []slideEntry {
	byNumber := make(map[int]string)
	for _, entry := range archive.ListEntries(slidePattern) {
		n, err := slideNumberFromEntry(slidePattern, entry)
		if err != nil {
			logger.Debug("[PPTX] Ignoring slide part", "entry", entry, "err", err)
			continue
		}

		prev, seen := byNumber[n]
		if !seen {
			byNumber[n] = entry
			continue
		}
		ignored := entry
		if entry == canonicalSlideEntry(n) {
			ignored = prev
			byNumber[n] = entry
		}
		logger.Warn("[PPTX] Ignoring duplicate slide part", "slide", n, "entry", ignored)
	}

	out := make([]slideEntry, 0, len(byNumber))
	for n, entry := range byNumber {
		out = append(out, slideEntry{number: n, entry: entry})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

func canonicalSlideEntry(n int) string {
	return fmt.Sprintf("ppt/slides/slide%d.xml", n)
}

func (e *Extractor) extractSlide(ctx context.Context, archive *Archive, rels Relationships, se slideEntry, stats *counters) (*Slide, error) {
	content, err := archive.ReadBytes(se.entry)
	if err != nil {
		return nil, &MalformedShapeTreeError{Slide: se.number, Reason: "read slide part", Err: err}
	}

	tree, err := DecodeShapeTree(content)
	if err != nil {
		return nil, &MalformedShapeTreeError{Slide: se.number, Reason: "decode shape tree", Err: err}
	}

	w := &walker{
		archive: archive,
		rels:    rels,
		slide:   se.number,
		entry:   se.entry,
		stats:   stats,
	}
	var items []walkItem
	if err := w.walk(tree.Shapes, &items, 0); err != nil {
		return nil, &MalformedShapeTreeError{Slide: se.number, Reason: "walk shape tree", Err: err}
	}

	elements, err := e.materialize(ctx, se.number, items, stats)
	if err != nil {
		return nil, err
	}

	return &Slide{Number: se.number, Content: elements}, nil
}

// materialize normalizes the images among items concurrently and returns the
// content elements in traversal order. Images that fail to normalize are left
// out.
func (e *Extractor) materialize(ctx context.Context, slide int, items []walkItem, stats *counters) ([]ContentElement, error) {
	slots := make([]*ContentElement, len(items))

	g := new(errgroup.Group)
	g.SetLimit(e.elementConcurrency)
	for i, item := range items {
		if item.image == nil {
			el := Text(item.text)
			slots[i] = &el
			continue
		}

		ref := item.image
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := e.normalizer.Normalize(ctx, media.Source{
				Slide:  ref.Slide,
				Path:   ref.SourcePath,
				Target: ref.Target,
				Data:   ref.Data,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				stats.inc(statFailedImages)
				var decodeErr *media.ImageDecodeError
				if errors.As(err, &decodeErr) {
					logger.Debug("[PPTX] Skipping undecodable image", "slide", slide, "entry", ref.SourcePath, "rel_id", ref.EmbedID, "err", err)
				} else {
					logger.Warn("[PPTX] Could not store image", "slide", slide, "entry", ref.SourcePath, "rel_id", ref.EmbedID, "err", err)
				}
				return nil
			}

			el := Image(out.OutputPath)
			slots[i] = &el
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elements := make([]ContentElement, 0, len(slots))
	for _, el := range slots {
		if el == nil {
			continue
		}
		switch el.Type {
		case ContentTypeText:
			stats.inc(statTextElements)
		case ContentTypeImage:
			stats.inc(statImageElements)
		}
		elements = append(elements, *el)
	}
	return elements, nil
}
