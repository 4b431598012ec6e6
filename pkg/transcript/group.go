package transcript

import (
	"github.com/slidescribe/backend/pkg/ai"
	"github.com/slidescribe/backend/pkg/pptx"
)

// GroupSlides splits slides into consecutive groups of size slides. The last
// group may be smaller; no group is empty.
func GroupSlides(slides []pptx.Slide, size int) [][]pptx.Slide {
	if size <= 0 {
		size = DefaultGroupSize
	}

	groups := make([][]pptx.Slide, 0, (len(slides)+size-1)/size)
	for i := 0; i < len(slides); i += size {
		end := min(i+size, len(slides))
		groups = append(groups, slides[i:end])
	}
	return groups
}

// SplitByTokens splits every group whose estimated token count exceeds
// maxTokens into consecutive smaller groups. A single slide above the budget
// stays a group of its own.
func SplitByTokens(groups [][]pptx.Slide, maxTokens int, count ai.TokenCounter) [][]pptx.Slide {
	if maxTokens <= 0 {
		return groups
	}

	out := make([][]pptx.Slide, 0, len(groups))
	for _, group := range groups {
		var current []pptx.Slide
		used := 0
		for _, slide := range group {
			tokens := SlideTokens(slide, count)
			if len(current) > 0 && used+tokens > maxTokens {
				out = append(out, current)
				current, used = nil, 0
			}
			current = append(current, slide)
			used += tokens
		}
		if len(current) > 0 {
			out = append(out, current)
		}
	}
	return out
}

// SlideTokens estimates the request size of a slide: its text plus a fixed
// allowance per image.
func SlideTokens(slide pptx.Slide, count ai.TokenCounter) int {
	tokens := 0
	for _, el := range slide.Content {
		switch el.Type {
		case pptx.ContentTypeText:
			tokens += count(el.Content)
		case pptx.ContentTypeImage:
			tokens += ai.ImageTokens
		}
	}
	return tokens
}
