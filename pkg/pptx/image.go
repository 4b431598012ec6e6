package pptx

import (
	"errors"
	"path"
	"strings"
)

var (
	errNoEmbed                = errors.New("picture has no embedded image")
	errUnresolvedRelationship = errors.New("relationship not found")
	errExternalTarget         = errors.New("relationship targets an external resource")
)

// ImageRef is a picture resolved to its bytes inside the package.
type ImageRef struct {
	Slide      int
	EmbedID    string
	Target     string
	SourcePath string
	Data       []byte
}

// ResolveTarget turns a relationship target of the part at partPath into an
// archive entry name. Targets starting with "/" are package-absolute, all
// others are relative to the directory of the part.
func ResolveTarget(partPath, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(path.Dir(partPath), target)
}

// ExtractImage resolves the embedded picture of pic through the slide's
// relationships and reads its bytes from the archive. The returned error tells
// why the picture was skipped; none of them is fatal to the slide.
func ExtractImage(archive *Archive, rels Relationships, slide int, slideEntry string, pic *PictureShape) (ImageRef, error) {
	if pic == nil || pic.EmbedID == "" {
		return ImageRef{}, errNoEmbed
	}

	rel, ok := rels.Find(slide, pic.EmbedID)
	if !ok {
		return ImageRef{}, errUnresolvedRelationship
	}
	if rel.IsExternal() {
		return ImageRef{}, errExternalTarget
	}

	source := ResolveTarget(slideEntry, rel.Target)
	data, err := archive.ReadBytes(source)
	if err != nil {
		return ImageRef{}, err
	}

	return ImageRef{
		Slide:      slide,
		EmbedID:    pic.EmbedID,
		Target:     rel.Target,
		SourcePath: source,
		Data:       data,
	}, nil
}
