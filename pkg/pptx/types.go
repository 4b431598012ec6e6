// Package pptx extracts the ordered text and image content of the slides of an
// Office Open XML presentation package.
//
// A run opens the package into an in-memory Archive, resolves every slide's
// relationships up front, walks each slide's shape tree (descending into
// groups, graphic frames and connectors) and normalizes embedded images into
// a durable media.Store. The result is a slice of Slide sorted by slide number.
//
// Example:
//
//	ex := pptx.NewExtractor(pptx.Options{
//		Normalizer: media.NewNormalizer(media.NewFileStore("output/images")),
//	})
//	slides, err := ex.ExtractFile(ctx, "deck.pptx")
//	if err != nil {
//		log.Fatal(err)
//	}
package pptx

// ContentType tags a ContentElement.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ContentElement is one piece of slide content. For text elements Content holds
// the extracted text, for image elements it holds the durable path of the
// normalized image.
type ContentElement struct {
	Type    ContentType `json:"type"`
	Content string      `json:"content"`
}

// Text returns a text element.
func Text(content string) ContentElement {
	return ContentElement{Type: ContentTypeText, Content: content}
}

// Image returns an image element referencing a normalized image.
func Image(path string) ContentElement {
	return ContentElement{Type: ContentTypeImage, Content: path}
}

// Slide is the extracted content of a single slide in document order.
type Slide struct {
	Number  int              `json:"slideNumber"`
	Content []ContentElement `json:"slideContent"`
}

// Relationship is a pointer from a slide part to another package part or to an
// external resource.
type Relationship struct {
	ID         string `xml:"Id,attr" json:"id"`
	Type       string `xml:"Type,attr" json:"type"`
	Target     string `xml:"Target,attr" json:"target"`
	TargetMode string `xml:"TargetMode,attr" json:"target_mode,omitempty"`
}

// IsExternal reports whether the target lives outside the package.
func (r Relationship) IsExternal() bool {
	return r.TargetMode == "External"
}
