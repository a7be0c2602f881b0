package lsp

import (
	"testing"

	"sarifnav/internal/region"
)

func TestToLSPRangeClampsNegative(t *testing.T) {
	got := toLSPRange(region.Range{StartLine: -1, StartCol: 2, EndLine: 0, EndCol: -5})
	want := lspRange{Start: position{Line: 0, Character: 2}, End: position{Line: 0, Character: 2}}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestToLSPRangeInvertedCollapsesToStart(t *testing.T) {
	cases := []struct {
		in   region.Range
		want lspRange
	}{
		{
			region.Range{StartLine: 4, StartCol: 2, EndLine: 1, EndCol: 9},
			lspRange{Start: position{Line: 4, Character: 2}, End: position{Line: 4, Character: 2}},
		},
		{
			region.Range{StartLine: 3, StartCol: 7, EndLine: 3, EndCol: 5},
			lspRange{Start: position{Line: 3, Character: 7}, End: position{Line: 3, Character: 7}},
		},
		{
			region.Range{StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 5},
			lspRange{Start: position{Line: 3, Character: 5}, End: position{Line: 3, Character: 5}},
		},
		{
			region.Range{StartLine: 1, StartCol: 8, EndLine: 2, EndCol: 0},
			lspRange{Start: position{Line: 1, Character: 8}, End: position{Line: 2, Character: 0}},
		},
	}
	for _, tc := range cases {
		if got := toLSPRange(tc.in); got != tc.want {
			t.Errorf("toLSPRange(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestContains(t *testing.T) {
	r := lspRange{Start: position{Line: 1, Character: 4}, End: position{Line: 3, Character: 1}}
	cases := []struct {
		p    position
		want bool
	}{
		{position{Line: 1, Character: 4}, true},
		{position{Line: 1, Character: 3}, false},
		{position{Line: 2, Character: 99}, true},
		{position{Line: 3, Character: 0}, true},
		{position{Line: 3, Character: 1}, false},
		{position{Line: 0, Character: 50}, false},
	}
	for _, tc := range cases {
		if got := contains(r, tc.p); got != tc.want {
			t.Errorf("contains(%+v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}
