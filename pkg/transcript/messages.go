package transcript

import (
	"bytes"
	"context"
	"net/http"

	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"
)

// BuildMessages turns a group of slides into one message per slide. Images are
// read back from store and attached when they are JPEG, PNG or TIFF. Slides
// that are skipped or end up without parts produce no message.
func BuildMessages(ctx context.Context, store media.Store, group []pptx.Slide, opts Options) ([]ai.SlideMessage, error) {
	opts = opts.withDefaults()

	messages := make([]ai.SlideMessage, 0, len(group))
	for _, slide := range group {
		if opts.SkipFirst && slide.Number == 1 {
			logger.Debug("[Transcript] Skipping first slide")
			continue
		}
		if marker, ok := skipMarker(slide, opts.SkipMarkers); ok {
			logger.Debug("[Transcript] Skipping slide", "slide", slide.Number, "marker", marker)
			continue
		}

		parts := make([]ai.ContentPart, 0, len(slide.Content))
		for _, el := range slide.Content {
			switch el.Type {
			case pptx.ContentTypeText:
				parts = append(parts, ai.TextPart(el.Content))
			case pptx.ContentTypeImage:
				data, err := store.Read(ctx, el.Content)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, ctxErr
					}
					logger.Warn("[Transcript] Could not read image", "slide", slide.Number, "ref", el.Content, "err", err)
					continue
				}
				mimeType := DetectImageType(data)
				if mimeType == "" {
					logger.Debug("[Transcript] Unsupported image format", "slide", slide.Number, "ref", el.Content)
					continue
				}
				parts = append(parts, ai.ImagePart(mimeType, data))
			}
		}
		if len(parts) == 0 {
			continue
		}

		messages = append(messages, ai.SlideMessage{SlideNumber: slide.Number, Parts: parts})
	}
	return messages, nil
}

func skipMarker(slide pptx.Slide, markers []string) (string, bool) {
	for _, el := range slide.Content {
		if el.Type != pptx.ContentTypeText {
			continue
		}
		for _, m := range markers {
			if el.Content == m {
				return m, true
			}
		}
	}
	return "", false
}

var (
	tiffLittleEndian = []byte("II*\x00")
	tiffBigEndian    = []byte("MM\x00*")
)

// DetectImageType returns the MIME type of data when it is an image format
// vision models accept, or "" otherwise.
func DetectImageType(data []byte) string {
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg", "image/png":
		return ct
	}
	if bytes.HasPrefix(data, tiffLittleEndian) || bytes.HasPrefix(data, tiffBigEndian) {
		return "image/tiff"
	}
	return ""
}
