package util

import (
	"slices"
	"testing"
)

func TestGetEnvNumeric(t *testing.T) {
	t.Setenv("TEST_NUM", "12")
	if got := int(GetEnvNumeric("TEST_NUM", 3)); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv("TEST_NUM", "abc")
	if got := int(GetEnvNumeric("TEST_NUM", 3)); got != 3 {
		t.Fatalf("expected default 3, got %d", got)
	}
	if got := int(GetEnvNumeric("TEST_NUM_UNSET", 7)); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"yes", true, true},
		{"yes", false, false},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if got := GetEnvBool("TEST_BOOL", tt.def); got != tt.want {
			t.Fatalf("GetEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestGetEnvList(t *testing.T) {
	def := []string{"Learning Outcomes"}

	t.Setenv("TEST_LIST", " Agenda , ,Learning Outcomes ")
	if got := GetEnvList("TEST_LIST", def); !slices.Equal(got, []string{"Agenda", "Learning Outcomes"}) {
		t.Fatalf("unexpected list %q", got)
	}

	t.Setenv("TEST_LIST", " , ")
	if got := GetEnvList("TEST_LIST", def); !slices.Equal(got, def) {
		t.Fatalf("expected default, got %q", got)
	}
}
