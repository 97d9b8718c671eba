package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFilename_Examples(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Smith&Dong-2023-NeuralNets", "Smith&Dong-2023-NeuralNets"},
		{"  Bank-Statement-HSBC-Nov2023 \n", "Bank-Statement-HSBC-Nov2023"},
		{"a<b>c:d", "a_b_c_d"},
		{`report/2023\final`, "report_2023_final"},
		{"what?*|now", "what_now"},
		{"__lead__and__trail__", "lead_and_trail"},
		{"tab\there", "tab_here"},
		{"line\nbreak", "line_break"},
		{"חשבונית-2023", "חשבונית-2023"},
	}
	for _, c := range cases {
		if got := Filename(c.in); got != c.want {
			t.Errorf("Filename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFilename_Placeholder(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", `<>:"/\|?*`, "___", "\x00\x01\x1f"} {
		if got := Filename(in); got != Placeholder {
			t.Errorf("Filename(%q) = %q, want %q", in, got, Placeholder)
		}
	}
}

func TestFilename_Truncates(t *testing.T) {
	long := strings.Repeat("ab", 200)
	got := Filename(long)
	if n := utf8.RuneCountInString(got); n != MaxLength {
		t.Errorf("len = %d, want %d", n, MaxLength)
	}

	// Mixed text under the byte limit keeps the full rune count.
	mixed := strings.Repeat("שa", 100)
	got = Filename(mixed)
	if n := utf8.RuneCountInString(got); n != MaxLength {
		t.Errorf("mixed len = %d, want %d", n, MaxLength)
	}
}

func TestFilename_ByteLimit(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantRunes int
	}{
		// 150 two-byte runes would be 300 bytes.
		{"hebrew", strings.Repeat("ש", 300), MaxBytes / 2},
		{"four-byte", strings.Repeat("😀", 200), MaxBytes / 4},
		{"odd boundary", "a" + strings.Repeat("ש", 200), 1 + (MaxBytes-1)/2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Filename(tc.in)
			if len(got)+len(".pdf") > 255 {
				t.Errorf("name+ext = %d bytes, over 255", len(got)+len(".pdf"))
			}
			if n := utf8.RuneCountInString(got); n != tc.wantRunes {
				t.Errorf("runes = %d, want %d", n, tc.wantRunes)
			}
			if !utf8.ValidString(got) {
				t.Error("truncation split a rune")
			}
			if again := Filename(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestFilename_TruncationDoesNotLeaveUnderscore(t *testing.T) {
	in := strings.Repeat("x", MaxLength-1) + "?tail"
	got := Filename(in)
	if strings.HasSuffix(got, "_") {
		t.Errorf("trailing underscore after truncation: %q", got)
	}
	if got != strings.Repeat("x", MaxLength-1) {
		t.Errorf("got %q", got)
	}
}

func TestFilename_TotalAndIdempotent(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"plain",
		"_ spaced _",
		"_ x",
		"x _",
		`<>:"/\|?*`,
		"a" + strings.Repeat(" ", MaxLength) + "b",
		strings.Repeat("?", 500),
		strings.Repeat("ab_", 80),
		strings.Repeat("x", MaxLength-1) + " y",
		"Court-Ruling-Case-456-2023",
		"\x7fdel",
	}
	for _, in := range inputs {
		once := Filename(in)
		if once == "" {
			t.Errorf("Filename(%q) is empty", in)
		}
		if utf8.RuneCountInString(once) > MaxLength || len(once) > MaxBytes {
			t.Errorf("Filename(%q) too long: %d runes, %d bytes", in, utf8.RuneCountInString(once), len(once))
		}
		if strings.ContainsAny(once, `<>:"/\|?*`) {
			t.Errorf("Filename(%q) = %q contains forbidden characters", in, once)
		}
		for _, r := range once {
			if r < 0x20 {
				t.Errorf("Filename(%q) = %q contains control character %U", in, once, r)
			}
		}
		if twice := Filename(once); twice != once {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
