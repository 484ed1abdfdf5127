package confirm

import "testing"

func TestResolveExactMatches(t *testing.T) {
	cases := []struct {
		input string
		want  Verdict
	}{
		{"हाँ", Yes},
		{"हां", Yes},
		{"जी हाँ", Yes},
		{"नहीं", No},
		{"ना", No},
		{"yes", Yes},
		{"Yes", Yes},
		{"YES", Yes},
		{"no", No},
		{"ok", Yes},
		{"done", Yes},
		{"nope", No},
		{"હા", Yes},
		{"નહીં", No},
		{"ಹೌದು", Yes},
		{"ಇಲ್ಲ", No},
		{"howdu", Yes},
		{"illa", No},
	}
	for _, c := range cases {
		if got := Resolve(c.input); got != c.want {
			t.Errorf("Resolve(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestResolvePunctuationStripped(t *testing.T) {
	// Devanagari danda and ASCII punctuation are stripped from the edges.
	cases := []struct {
		input string
		want  Verdict
	}{
		{"कर दो।", Yes},
		{"yes.", Yes},
		{"no,", No},
		{"  haan  ", Yes},
	}
	for _, c := range cases {
		if got := Resolve(c.input); got != c.want {
			t.Errorf("Resolve(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestResolveSubstringFallbackShortInputs(t *testing.T) {
	// Short inputs fall back to containment.
	if got := Resolve("haan kar do"); got != Yes {
		t.Errorf("Resolve(%q) = %v, want %v", "haan kar do", got, Yes)
	}
	if got := Resolve("nahi bhai"); got != No {
		t.Errorf("Resolve(%q) = %v, want %v", "nahi bhai", got, No)
	}
}

func TestResolveNoFallbackWithoutKeyword(t *testing.T) {
	// Short string, but no curated keyword appears: ambiguous.
	if got := Resolve("bas theek hai"); got != Ambiguous {
		t.Errorf("Resolve(%q) = %v, want %v", "bas theek hai", got, Ambiguous)
	}
}

func TestResolveLongInputsSkipFallback(t *testing.T) {
	// Over 15 characters: a keyword buried in a sentence must not fire.
	long := "my neighbour said yes but I am still deciding"
	if got := Resolve(long); got != Ambiguous {
		t.Errorf("Resolve(%q) = %v, want %v", long, got, Ambiguous)
	}
}

func TestResolveConflictIsAmbiguous(t *testing.T) {
	// Both lists firing yields ambiguous.
	if got := Resolve("haan nahi"); got != Ambiguous {
		t.Errorf("Resolve(%q) = %v, want %v", "haan nahi", got, Ambiguous)
	}
	if got := Resolve(""); got != Ambiguous {
		t.Errorf("Resolve(\"\") = %v, want %v", got, Ambiguous)
	}
}

func TestIsGreeting(t *testing.T) {
	positives := []string{"hi", "Hello", "hey", "namaste", "नमस्ते", "hello there", "good morning"}
	for _, p := range positives {
		if !IsGreeting(p) {
			t.Errorf("IsGreeting(%q) = false, want true", p)
		}
	}
	negatives := []string{"", "paint my house", "haan", "2 bhk flat in andheri"}
	for _, n := range negatives {
		if IsGreeting(n) {
			t.Errorf("IsGreeting(%q) = true, want false", n)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Kar Do।  "); got != "kar do" {
		t.Errorf("Normalize = %q, want %q", got, "kar do")
	}
}
