package transcript

import (
	"context"
	"image/color"
	"testing"

	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"
	"github.com/slidescribe/backend/pkg/pptx/pptxtest"
)

func saveImage(t *testing.T, store media.Store, name string, data []byte) string {
	t.Helper()
	ref, _, err := store.Save(context.Background(), name, data)
	if err != nil {
		t.Fatalf("Save(%s) error = %v", name, err)
	}
	return ref
}

func TestBuildMessages(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	jpegRef := saveImage(t, store, "slide2_a.jpeg", pptxtest.JPEG(4, 4, color.White))
	pngRef := saveImage(t, store, "slide2_b.png", pptxtest.PNG(4, 4, color.Black))
	gifRef := saveImage(t, store, "slide2_c.gif", []byte("GIF89a......"))

	group := []pptx.Slide{
		{Number: 1, Content: []pptx.ContentElement{pptx.Text("Title")}},
		{Number: 2, Content: []pptx.ContentElement{
			pptx.Text("Intro"),
			pptx.Image(jpegRef),
			pptx.Image(pngRef),
			pptx.Image(gifRef),
			pptx.Image(store.Dir() + "/missing.jpeg"),
		}},
		{Number: 3, Content: []pptx.ContentElement{pptx.Text("Learning Outcomes"), pptx.Text("more")}},
		{Number: 4, Content: []pptx.ContentElement{}},
		{Number: 5, Content: []pptx.ContentElement{pptx.Text("Summary")}},
	}

	msgs, err := BuildMessages(context.Background(), store, group, Options{SkipFirst: true})
	if err != nil {
		t.Fatalf("BuildMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(msgs), msgs)
	}

	first := msgs[0]
	if first.SlideNumber != 2 || len(first.Parts) != 3 {
		t.Fatalf("unexpected first message %+v", first)
	}
	if first.Parts[0].Type != ai.PartTypeText || first.Parts[0].Text != "Intro" {
		t.Fatalf("unexpected text part %+v", first.Parts[0])
	}
	if first.Parts[1].Image == nil || first.Parts[1].Image.MIMEType != "image/jpeg" {
		t.Fatalf("expected jpeg part, got %+v", first.Parts[1])
	}
	if first.Parts[2].Image == nil || first.Parts[2].Image.MIMEType != "image/png" {
		t.Fatalf("expected png part, got %+v", first.Parts[2])
	}
	if msgs[1].SlideNumber != 5 {
		t.Fatalf("expected slide 5, got %d", msgs[1].SlideNumber)
	}
}

func TestBuildMessagesSkipOptions(t *testing.T) {
	store := media.NewFileStore(t.TempDir())
	group := []pptx.Slide{
		{Number: 1, Content: []pptx.ContentElement{pptx.Text("Title")}},
		{Number: 2, Content: []pptx.ContentElement{pptx.Text("Learning Outcomes")}},
		{Number: 3, Content: []pptx.ContentElement{pptx.Text("Agenda")}},
	}

	tests := []struct {
		name string
		opts Options
		want []int
	}{
		{"defaults", Options{}, []int{1, 3}},
		{"skip first", Options{SkipFirst: true}, []int{3}},
		{"no markers", Options{SkipMarkers: []string{}}, []int{1, 2, 3}},
		{"custom marker", Options{SkipMarkers: []string{"Agenda"}}, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := BuildMessages(context.Background(), store, group, tt.opts)
			if err != nil {
				t.Fatalf("BuildMessages() error = %v", err)
			}
			if len(msgs) != len(tt.want) {
				t.Fatalf("got %d messages, want %v", len(msgs), tt.want)
			}
			for i, m := range msgs {
				if m.SlideNumber != tt.want[i] {
					t.Fatalf("message %d is slide %d, want %d", i, m.SlideNumber, tt.want[i])
				}
			}
		})
	}
}

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", pptxtest.JPEG(2, 2, color.White), "image/jpeg"},
		{"png", pptxtest.PNG(2, 2, color.White), "image/png"},
		{"tiff little endian", []byte("II*\x00rest"), "image/tiff"},
		{"tiff big endian", []byte("MM\x00*rest"), "image/tiff"},
		{"gif", []byte("GIF89a"), ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectImageType(tt.data); got != tt.want {
				t.Fatalf("DetectImageType() = %q, want %q", got, tt.want)
			}
		})
	}
}
