package fuzzy

import "testing"

func TestFindBestMatchExact(t *testing.T) {
	candidates := []Candidate{{ID: "a", Text: "Buy milk"}}
	match := FindBestMatch(candidates, "buy milk", DefaultThreshold)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != "a" {
		t.Fatalf("expected candidate a, got %s", match.ID)
	}
	if match.Distance != 0 {
		t.Fatalf("expected distance 0, got %d", match.Distance)
	}
}

func TestFindBestMatchRejectsBeyondThreshold(t *testing.T) {
	candidates := []Candidate{{ID: "a", Text: "Buy milk"}}
	// distance("xyz", "buy milk") exceeds max(3, 8)*0.6.
	if match := FindBestMatch(candidates, "xyz", DefaultThreshold); match != nil {
		t.Fatalf("expected no match, got %+v", match)
	}
}

func TestFindBestMatchEmptyInputs(t *testing.T) {
	if match := FindBestMatch(nil, "anything", DefaultThreshold); match != nil {
		t.Fatalf("expected nil for empty candidates, got %+v", match)
	}
	if match := FindBestMatch([]Candidate{{ID: "a", Text: "x"}}, "", DefaultThreshold); match != nil {
		t.Fatalf("expected nil for empty query, got %+v", match)
	}
}

func TestFindBestMatchThresholdScalesWithLength(t *testing.T) {
	// Two edits against a short word fail at 0.4 but a proportionally
	// similar long string passes.
	short := []Candidate{{ID: "s", Text: "cat"}}
	if match := FindBestMatch(short, "cut", 0.2); match != nil {
		t.Fatalf("expected short-string rejection, got %+v", match)
	}
	long := []Candidate{{ID: "l", Text: "weekly grocery shopping run"}}
	if match := FindBestMatch(long, "weekly grocery shoping run", 0.2); match == nil {
		t.Fatal("expected long-string tolerance to accept one edit")
	}
}

func TestFindBestMatchKeepsFirstSeenMinimum(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Text: "call mom"},
		{ID: "second", Text: "call mom"},
	}
	match := FindBestMatch(candidates, "call mom", DefaultThreshold)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != "first" {
		t.Fatalf("tie should keep the first-seen minimum, got %s", match.ID)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"milk", "milk", 0},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
