// Package pptxtest builds small presentation packages in memory for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	ImageRelType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	LayoutRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
)

const slideHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
	`xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
	`<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`

const slideFooter = `</p:spTree></p:cSld></p:sld>`

// Rel is one relationship of a slide.
type Rel struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// ImageRel returns an internal image relationship.
func ImageRel(id, target string) Rel {
	return Rel{ID: id, Type: ImageRelType, Target: target}
}

// Deck collects the entries of a package. Entries are written in the order
// they were added.
type Deck struct {
	names []string
	files map[string][]byte
}

// New returns a deck holding the content types and presentation parts.
func New() *Deck {
	d := &Deck{files: make(map[string][]byte)}
	d.Add("[Content_Types].xml", []byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	d.Add("ppt/presentation.xml", []byte(`<?xml version="1.0" encoding="UTF-8"?><p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`))
	return d
}

// Add stores an entry, replacing an earlier one with the same name.
func (d *Deck) Add(name string, data []byte) *Deck {
	if _, ok := d.files[name]; !ok {
		d.names = append(d.names, name)
	}
	d.files[name] = data
	return d
}

// Slide adds ppt/slides/slide{n}.xml with the given shape markup and, when rels
// are given, its relationship part.
func (d *Deck) Slide(n int, shapes string, rels ...Rel) *Deck {
	d.Add(fmt.Sprintf("ppt/slides/slide%d.xml", n), []byte(SlideXML(shapes)))
	if len(rels) > 0 {
		d.Rels(n, rels...)
	}
	return d
}

// Rels adds the relationship part of slide n.
func (d *Deck) Rels(n int, rels ...Rel) *Deck {
	return d.Add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), []byte(RelsXML(rels...)))
}

// Media adds ppt/media/name.
func (d *Deck) Media(name string, data []byte) *Deck {
	return d.Add("ppt/media/"+name, data)
}

// Bytes returns the zipped package.
func (d *Deck) Bytes() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range d.names {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(d.files[name]); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WriteFile writes the package to dir/name and returns its path.
func (d *Deck) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, d.Bytes(), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	return p
}

// SlideXML wraps shape markup into a slide part.
func SlideXML(shapes string) string {
	return slideHeader + shapes + slideFooter
}

// RelsXML renders a relationship part.
func RelsXML(rels ...Rel) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"`, r.ID, r.Type, r.Target)
		if r.TargetMode != "" {
			fmt.Fprintf(&sb, ` TargetMode="%s"`, r.TargetMode)
		}
		sb.WriteString(`/>`)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

// TextShape renders a p:sp with one paragraph per element of paragraphs, each
// holding one run per string.
func TextShape(name string, paragraphs ...[]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/>`, name)
	for _, runs := range paragraphs {
		sb.WriteString(`<a:p>`)
		for _, r := range runs {
			fmt.Fprintf(&sb, `<a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r>`, r)
		}
		sb.WriteString(`</a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	return sb.String()
}

// Text is TextShape with a single paragraph.
func Text(name string, runs ...string) string {
	return TextShape(name, runs)
}

// Picture renders a p:pic embedding the image behind relationship embedID.
func Picture(name, embedID string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="3" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr/></p:pic>`, name, embedID)
}

// Group renders a p:grpSp around children.
func Group(name string, children ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="4" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:grpSp>`,
		name, strings.Join(children, ""))
}

// GraphicFrame renders a p:graphicFrame whose graphic data holds children.
func GraphicFrame(name string, children ...string) string {
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="5" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`<p:xfrm/><a:graphic><a:graphicData uri="urn:test">%s</a:graphicData></a:graphic></p:graphicFrame>`,
		name, strings.Join(children, ""))
}

// AlternateContent renders an mc:AlternateContent block with one Choice and a
// Fallback.
func AlternateContent(choice, fallback string) string {
	return `<mc:AlternateContent><mc:Choice Requires="p14">` + choice + `</mc:Choice><mc:Fallback>` + fallback + `</mc:Fallback></mc:AlternateContent>`
}

// PNG returns a w x h PNG filled with c.
func PNG(w, h int, c color.Color) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, fill(w, h, c)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG returns a w x h JPEG filled with c.
func JPEG(w, h int, c color.Color) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fill(w, h, c), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func fill(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
