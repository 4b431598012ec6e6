package pptx

import (
	"errors"

	"github.com/slidescribe/backend/pkg/logger"
)

// walkItem is one accumulated piece of slide content in traversal order. Images
// are kept as resolved references until they are normalized.
type walkItem struct {
	text  string
	image *ImageRef
}

type walker struct {
	archive *Archive
	rels    Relationships
	slide   int
	entry   string
	stats   *counters
}

// walk appends the content of nodes to acc in document order, descending into
// groups and containers.
func (w *walker) walk(nodes []ShapeNode, acc *[]walkItem, depth int) error {
	if depth > MaxShapeDepth {
		return errShapeTreeTooDeep
	}

	for _, node := range nodes {
		switch n := node.(type) {
		case *TextShape:
			text := ExtractText(n)
			if text == "" {
				continue
			}
			*acc = append(*acc, walkItem{text: text})

		case *PictureShape:
			ref, err := ExtractImage(w.archive, w.rels, w.slide, w.entry, n)
			if err != nil {
				w.skipImage(n, err)
				continue
			}
			*acc = append(*acc, walkItem{image: &ref})

		case *GroupShape:
			if err := w.walk(n.Children, acc, depth+1); err != nil {
				return err
			}

		case *ContainerShape:
			if err := w.walk(n.Children, acc, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *walker) skipImage(pic *PictureShape, err error) {
	var notFound *EntryNotFoundError
	switch {
	case errors.Is(err, errUnresolvedRelationship), errors.Is(err, errNoEmbed):
		w.stats.inc(statUnresolvedImages)
	case errors.Is(err, errExternalTarget):
		w.stats.inc(statExternalImages)
	case errors.As(err, &notFound):
		w.stats.inc(statMissingImages)
	default:
		w.stats.inc(statFailedImages)
	}
	logger.Debug("[PPTX] Skipping picture", "slide", w.slide, "shape", pic.Name, "rel_id", pic.EmbedID, "err", err)
}
