package pptx

import "fmt"

// CorruptArchiveError is returned when the input is not a readable presentation
// package. It is the only error that aborts an extraction run.
type CorruptArchiveError struct {
	Reason string
	Err    error
}

func (e *CorruptArchiveError) Error() string {
	if e.Err == nil {
		return "corrupt archive: " + e.Reason
	}
	return fmt.Sprintf("corrupt archive: %s: %v", e.Reason, e.Err)
}

func (e *CorruptArchiveError) Unwrap() error { return e.Err }

// EntryNotFoundError reports a lookup of a path that is not part of the archive.
type EntryNotFoundError struct {
	Path string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("archive entry not found: %s", e.Path)
}

// RelationshipParseError reports a slide relationship descriptor that could not
// be decoded. The affected slide continues with an empty relationship set.
type RelationshipParseError struct {
	Slide int
	Entry string
	Err   error
}

func (e *RelationshipParseError) Error() string {
	return fmt.Sprintf("slide %d: parse relationships %s: %v", e.Slide, e.Entry, e.Err)
}

func (e *RelationshipParseError) Unwrap() error { return e.Err }

// MalformedShapeTreeError reports a slide whose shape tree could not be decoded
// or walked. The slide is dropped from the result.
type MalformedShapeTreeError struct {
	Slide  int
	Reason string
	Err    error
}

func (e *MalformedShapeTreeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("slide %d: malformed shape tree: %s", e.Slide, e.Reason)
	}
	return fmt.Sprintf("slide %d: malformed shape tree: %s: %v", e.Slide, e.Reason, e.Err)
}

func (e *MalformedShapeTreeError) Unwrap() error { return e.Err }
