package chat

import "testing"

func TestFilterAllowed(t *testing.T) {
	f := NewFilter([]string{"spam", "Buy Now", "  ", ""})

	cases := []struct {
		name    string
		content string
		want    bool
	}{
		{"clean message", "shipping the auth flow tonight", true},
		{"exact banned word", "spam", false},
		{"banned word embedded", "this is SPAM for sure", false},
		{"case-insensitive phrase", "buy now and save", false},
		{"empty message", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.Allowed(tc.content); got != tc.want {
				t.Fatalf("Allowed(%q) = %v, want %v", tc.content, got, tc.want)
			}
		})
	}
}

func TestFilterNoPhrases(t *testing.T) {
	f := NewFilter(nil)
	if !f.Allowed("anything goes") {
		t.Fatalf("empty filter rejected a message")
	}
}
