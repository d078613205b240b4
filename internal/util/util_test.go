package util

import "testing"

func TestMaskMiddle(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"ab":          "**",
		"TRX12":       "T***2",
		"TRX12345":    "TR****45",
		"01712345678": "017*****678",
	}
	for in, want := range cases {
		if got := MaskMiddle(in); got != want {
			t.Fatalf("MaskMiddle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	got := MaskSensitiveQuery("status=pending&token=abcdefghijkl&page=2")
	if got != "status=pending&token=abc%2A%2A%2A%2A%2A%2Ajkl&page=2" {
		t.Fatalf("masked = %q", got)
	}
	if MaskSensitiveQuery("status=pending") != "status=pending" {
		t.Fatalf("unexpected change")
	}
}
