package domain

import "testing"

func TestDecodeJapaneseOnly(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"mixed run keeps slash escape", "%E4%BA%8C%2Fabc", "二%2Fabc"},
		{"ascii is untouched", "john-doe-42", "john-doe-42"},
		{"fully japanese", "%E3%82%84%E3%81%BE%E3%81%A0-%E5%A4%AA%E9%83%8E", "やまだ-太郎"},
		{"prolonged sound mark", "%E3%83%A1%E3%83%BC%E3%83%AB", "メール"},
		{"half-width katakana", "%EF%BD%B1%EF%BE%9D", "ｱﾝ"},
		{"latin accent stays encoded", "jos%C3%A9-garcia", "jos%C3%A9-garcia"},
		{"lower-case hex decoded", "%e4%ba%8c", "二"},
		{"invalid utf8 kept", "%E4%BA", "%E4%BA"},
		{"truncated escape kept", "abc%E", "abc%E"},
		{"percent literal kept", "100%-sure", "100%-sure"},
		{"space escape kept", "%20%E5%B1%B1", "%20山"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeJapaneseOnly(tc.in); got != tc.want {
				t.Fatalf("DecodeJapaneseOnly(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIdentifiersNormalize(t *testing.T) {
	got := Identifiers{Public: " %E4%BA%8C ", Private: " ACoAAB "}.Normalize()
	if got.Public != "二" || got.Private != "ACoAAB" {
		t.Fatalf("unexpected normalised identifiers: %+v", got)
	}
	if !(Identifiers{}).Empty() {
		t.Fatalf("expected zero identifiers to be empty")
	}
}
