// Package media converts images extracted from presentations into a single
// canonical encoding and writes them to durable storage.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"path"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/slidescribe/backend/pkg/logger"
)

const (
	// DefaultJPEGQuality is the lossy quality used when re-encoding.
	DefaultJPEGQuality = 60
	// CanonicalFormat is the encoding every normalized image ends up in.
	CanonicalFormat = "jpeg"
)

// ErrUnsupportedFormat is wrapped by ImageDecodeError when the bytes are in a
// format no registered decoder understands (EMF, WMF, SVG, ...).
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageDecodeError reports an image that could not be decoded or re-encoded.
// Only the affected element is dropped.
type ImageDecodeError struct {
	Name string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("normalize image %s: %v", e.Name, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// Source is an image as found inside a presentation package.
type Source struct {
	Slide  int
	Path   string // archive-internal path
	Target string // relationship target, its base name names the output
	Data   []byte
}

// NormalizedImage describes an image written to the store.
type NormalizedImage struct {
	SourcePath string `json:"source_path"`
	OutputPath string `json:"output_path"`
	Format     string `json:"format"`
	Created    bool   `json:"created"`
}

// Normalizer converts images to CanonicalFormat and saves them to a Store.
type Normalizer struct {
	store   Store
	quality int
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithQuality sets the JPEG quality used for re-encoding (1-100).
func WithQuality(quality int) NormalizerOption {
	return func(n *Normalizer) {
		if quality >= 1 && quality <= 100 {
			n.quality = quality
		}
	}
}

// NewNormalizer returns a Normalizer writing to store.
func NewNormalizer(store Store, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		store:   store,
		quality: DefaultJPEGQuality,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Store returns the store images are written to.
func (n *Normalizer) Store() Store {
	return n.store
}

// Scope returns a Normalizer with the same settings that writes to the part of
// its store reserved for scope.
func (n *Normalizer) Scope(scope string) (*Normalizer, error) {
	store, err := Scoped(n.store, scope)
	if err != nil {
		return nil, err
	}
	return &Normalizer{store: store, quality: n.quality}, nil
}

// OutputName returns the deterministic name of the normalized image of target
// on a slide: slide{N}_{basename(target)}.
func OutputName(slide int, target string) string {
	base := path.Base(strings.ReplaceAll(target, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("slide%d_%s", slide, base)
}

// IsCanonical reports whether a file extension already denotes CanonicalFormat.
func IsCanonical(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// Normalize writes src to the store. Images whose target already has a JPEG
// extension are written byte for byte; everything else is decoded and
// re-encoded as JPEG.
func (n *Normalizer) Normalize(ctx context.Context, src Source) (NormalizedImage, error) {
	name := OutputName(src.Slide, src.Target)

	data := src.Data
	if !IsCanonical(path.Ext(src.Target)) {
		encoded, err := Transcode(src.Data, n.quality)
		if err != nil {
			return NormalizedImage{}, &ImageDecodeError{Name: name, Err: err}
		}
		data = encoded
	}

	ref, created, err := n.store.Save(ctx, name, data)
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("save %s: %w", name, err)
	}
	if !created {
		logger.Debug("[Media] Keeping existing image", "name", name, "ref", ref)
	}

	return NormalizedImage{
		SourcePath: src.Path,
		OutputPath: ref,
		Format:     CanonicalFormat,
		Created:    created,
	}, nil
}

// Transcode decodes data in any registered format and encodes it as JPEG at
// the given quality. Transparent areas are flattened onto white.
func Transcode(data []byte, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("decode %s: empty image", format)
	}

	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
