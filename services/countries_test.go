package services

import "testing"

func TestNormalizeCountryCode(t *testing.T) {
	cases := []struct{ in, want string }{
		{"United Kingdom", "gb"},
		{"uk", "gb"},
		{"UK", "gb"},
		{"Japan", "jp"},
		{"fr", "fr"},
		{"Atlantis", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeCountryCode(tc.in); got != tc.want {
			t.Errorf("NormalizeCountryCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDestinationCandidates(t *testing.T) {
	got := destinationCandidates("Tokyo, Japan")
	if len(got) == 0 || got[0] != "TYO" {
		t.Errorf("city token should resolve to TYO first, got %v", got)
	}

	got = destinationCandidates("nrt")
	if len(got) != 1 || got[0] != "NRT" {
		t.Errorf("IATA-looking input should upper-case, got %v", got)
	}

	got = destinationCandidates("japan")
	if len(got) < 4 {
		t.Errorf("country input should expand to its hubs, got %v", got)
	}

	if got := destinationCandidates("  "); got != nil {
		t.Errorf("blank input should produce nothing, got %v", got)
	}
}

func TestUniqueStrings(t *testing.T) {
	got := uniqueStrings([]string{"TYO", "", "HND", "TYO", "NRT", "HND"})
	want := []string{"TYO", "HND", "NRT"}
	if len(got) != len(want) {
		t.Fatalf("uniqueStrings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueStrings = %v, want %v", got, want)
		}
	}
}
