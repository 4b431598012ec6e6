package ai

import (
	"testing"

	"github.com/invopop/jsonschema"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  person
	}{
		{
			name:  "valid json object",
			input: `{"name":"John"}`,
			want:  person{Name: "John"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'John'}`,
			want:  person{Name: "John"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"John",}`,
			want:  person{Name: "John"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"John`,
			want:  person{Name: "John"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'John'}"`,
			want:  person{Name: "John"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"John\"\n}\n",
			want:  person{Name: "John"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "name": "John" }`,
			want:  person{Name: "John"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got person
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Age != tc.want.Age {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	input := `[{name:'A'},{name:'B',}]`
	var got []person
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two persons A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	var got person
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_CountryExamples(t *testing.T) {
	type country struct {
		Name      string   `json:"name"`
		Capital   string   `json:"capital"`
		Languages []string `json:"languages"`
	}

	tests := []struct {
		name  string
		input string
		want  country
	}{
		{
			name:  "canada simple stringified",
			input: `"{ \"name\": \"Canada\", \"capital\": \"Ottawa\", \"languages\": [ \"English\", \"French\" ] }"`,
			want:  country{Name: "Canada", Capital: "Ottawa", Languages: []string{"English", "French"}},
		},
		{
			name:  "canada stringified with newlines",
			input: `"{\n  \"name\": \"Canada\",\n  \"capital\": \"Ottawa\",\n  \"languages\": [\"English\", \"French\", \"Other Indigenous Languages (e.g., Cree, Inuktitut)\"]\n  }\n"`,
			want:  country{Name: "Canada", Capital: "Ottawa", Languages: []string{"English", "French", "Other Indigenous Languages (e.g., Cree, Inuktitut)"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got country
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Capital != tc.want.Capital {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
			if len(got.Languages) != len(tc.want.Languages) {
				t.Fatalf("UnmarshalFlexible() languages length got = %d, want %d", len(got.Languages), len(tc.want.Languages))
			}
			for i := range got.Languages {
				if got.Languages[i] != tc.want.Languages[i] {
					t.Fatalf("UnmarshalFlexible() languages[%d] = %q, want %q", i, got.Languages[i], tc.want.Languages[i])
				}
			}
		})
	}
}

func TestUnmarshalFlexible_CodeFence(t *testing.T) {
	input := "```json\n{\"transcript_segments\":[{\"slide_number\":2,\"title\":\"Intro\",\"transcript\":\"Hello\"}]}\n```"
	var got TranscriptResponse
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got.Segments) != 1 || got.Segments[0].SlideNumber != 2 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestParseTranscript(t *testing.T) {
	segments, err := ParseTranscript(`{"transcript_segments":[{"slide_number":3,"title":"A","transcript":"B"},{"slide_number":4,"title":"C","transcript":"D"}]}`)
	if err != nil {
		t.Fatalf("ParseTranscript() error = %v", err)
	}
	if len(segments) != 2 || segments[1].Transcript != "D" {
		t.Fatalf("unexpected segments %+v", segments)
	}

	segments, err = ParseTranscript(`{}`)
	if err != nil || segments == nil || len(segments) != 0 {
		t.Fatalf("expected empty non-nil segments, got %v %v", segments, err)
	}

	if _, err := ParseTranscript("  "); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestGenerateSchemaTranscript(t *testing.T) {
	schema, ok := GenerateSchema(&TranscriptResponse{}).(*jsonschema.Schema)
	if !ok {
		t.Fatalf("expected *jsonschema.Schema")
	}
	if _, ok := schema.Properties.Get("transcript_segments"); !ok {
		t.Fatal("schema is missing transcript_segments")
	}
}

func TestDataURL(t *testing.T) {
	got := DataURL(&ImageData{MIMEType: "image/png", Data: []byte("abc")})
	if got != "data:image/png;base64,YWJj" {
		t.Fatalf("unexpected data url %q", got)
	}
}

func TestNewGenerateOptions(t *testing.T) {
	o := NewGenerateOptions("gpt-4o", WithTemperature(0.7), WithMaxTokens(100))
	if o.Model != "gpt-4o" || o.Temperature != 0.7 || o.MaxTokens != 100 {
		t.Fatalf("unexpected options %+v", o)
	}
	if len(o.SystemPrompts) != 1 || o.SystemPrompts[0] != TranscriptSystemPrompt {
		t.Fatal("expected the transcript system prompt by default")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"äöüß", 1},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
