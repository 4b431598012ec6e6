package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// MaxShapeDepth bounds how deeply shape trees are decoded and walked.
const MaxShapeDepth = 64

var errShapeTreeTooDeep = fmt.Errorf("shape tree deeper than %d levels", MaxShapeDepth)

// shapeCategories is the order in which the direct children of a shape
// container are visited. Order within a category follows the document.
var shapeCategories = []string{"sp", "pic", "grpSp", "graphicFrame", "cxnSp"}

// ShapeNode is a node of a decoded shape tree. It is one of *TextShape,
// *PictureShape, *GroupShape or *ContainerShape.
type ShapeNode interface {
	shapeNode()
}

// TextShape is a shape carrying a text body.
type TextShape struct {
	Name       string
	Paragraphs []Paragraph
}

// Paragraph holds the text of the runs of one paragraph, in order.
type Paragraph struct {
	Runs []string
}

// PictureShape is a shape filled with an embedded or linked picture.
type PictureShape struct {
	Name    string
	EmbedID string
	LinkID  string
}

// GroupShape is a group of shapes.
type GroupShape struct {
	Name     string
	Children []ShapeNode
}

// ContainerShape is any other element (graphic frame, connector, markup
// compatibility block, ...) that contains shapes further down.
type ContainerShape struct {
	Kind     string
	Children []ShapeNode
}

func (*TextShape) shapeNode()      {}
func (*PictureShape) shapeNode()   {}
func (*GroupShape) shapeNode()     {}
func (*ContainerShape) shapeNode() {}

// ShapeTree is the decoded shape tree of one slide.
type ShapeTree struct {
	Shapes []ShapeNode
}

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) child(local string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *xmlNode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// DecodeShapeTree decodes the shape tree (p:sld/p:cSld/p:spTree) of a slide part.
func DecodeShapeTree(content []byte) (*ShapeTree, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel

	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode slide xml: %w", err)
	}
	if root.XMLName.Local != "sld" {
		return nil, fmt.Errorf("unexpected root element %q", root.XMLName.Local)
	}

	cSld := root.child("cSld")
	if cSld == nil {
		return nil, errors.New("slide has no common slide data")
	}
	spTree := cSld.child("spTree")
	if spTree == nil {
		return nil, errors.New("slide has no shape tree")
	}

	shapes, err := collectShapes(spTree, 0)
	if err != nil {
		return nil, err
	}
	return &ShapeTree{Shapes: shapes}, nil
}

func isShapeCategory(local string) bool {
	for _, c := range shapeCategories {
		if c == local {
			return true
		}
	}
	return false
}

// elements that never contain shapes
func isShapeLeaf(local string) bool {
	switch local {
	case "txBody", "spPr", "grpSpPr", "style", "xfrm", "extLst", "blipFill":
		return true
	}
	return strings.HasPrefix(local, "nv") && strings.HasSuffix(local, "Pr")
}

func collectShapes(n *xmlNode, depth int) ([]ShapeNode, error) {
	if depth > MaxShapeDepth {
		return nil, errShapeTreeTooDeep
	}

	out := make([]ShapeNode, 0)
	for _, category := range shapeCategories {
		for i := range n.Nodes {
			c := &n.Nodes[i]
			if c.XMLName.Local != category {
				continue
			}
			shape, err := convertShape(c, depth+1)
			if err != nil {
				return nil, err
			}
			if shape != nil {
				out = append(out, shape)
			}
		}
	}

	for i := range n.Nodes {
		c := &n.Nodes[i]
		local := c.XMLName.Local
		if isShapeCategory(local) || isShapeLeaf(local) || len(c.Nodes) == 0 {
			continue
		}

		if local == "AlternateContent" {
			c = alternateBranch(c)
			if c == nil {
				continue
			}
		}

		children, err := collectShapes(c, depth+1)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			out = append(out, &ContainerShape{Kind: local, Children: children})
		}
	}

	return out, nil
}

// alternateBranch picks the single branch of a markup compatibility block that
// should be read: the first Choice, or the Fallback when there is none.
func alternateBranch(n *xmlNode) *xmlNode {
	if choice := n.child("Choice"); choice != nil {
		return choice
	}
	return n.child("Fallback")
}

func convertShape(n *xmlNode, depth int) (ShapeNode, error) {
	if depth > MaxShapeDepth {
		return nil, errShapeTreeTooDeep
	}

	if body := n.child("txBody"); body != nil {
		return &TextShape{Name: shapeName(n), Paragraphs: decodeParagraphs(body)}, nil
	}

	if fill := n.child("blipFill"); fill != nil {
		pic := &PictureShape{Name: shapeName(n)}
		if blip := fill.child("blip"); blip != nil {
			pic.EmbedID = blip.attr("embed")
			pic.LinkID = blip.attr("link")
		}
		return pic, nil
	}

	children, err := collectShapes(n, depth)
	if err != nil {
		return nil, err
	}

	if n.XMLName.Local == "grpSp" {
		return &GroupShape{Name: shapeName(n), Children: children}, nil
	}
	if len(children) == 0 {
		return nil, nil
	}
	return &ContainerShape{Kind: n.XMLName.Local, Children: children}, nil
}

func decodeParagraphs(body *xmlNode) []Paragraph {
	paragraphs := make([]Paragraph, 0)
	for i := range body.Nodes {
		p := &body.Nodes[i]
		if p.XMLName.Local != "p" {
			continue
		}
		para := Paragraph{Runs: make([]string, 0)}
		for j := range p.Nodes {
			r := &p.Nodes[j]
			if r.XMLName.Local != "r" {
				continue
			}
			if t := r.child("t"); t != nil {
				para.Runs = append(para.Runs, t.Text)
			}
		}
		paragraphs = append(paragraphs, para)
	}
	return paragraphs
}

func shapeName(n *xmlNode) string {
	for i := range n.Nodes {
		local := n.Nodes[i].XMLName.Local
		if !strings.HasPrefix(local, "nv") {
			continue
		}
		if cNvPr := n.Nodes[i].child("cNvPr"); cNvPr != nil {
			return cNvPr.attr("name")
		}
	}
	return ""
}
