package candidate

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		source Source
		want   string
	}{
		{name: "telegram plain", rawURL: "https://t.me/shop_uz", source: SourceTelegram, want: "shop_uz"},
		{name: "telegram channel view", rawURL: "https://t.me/s/shop_uz", source: SourceTelegram, want: "shop_uz"},
		{name: "telegram channel view post", rawURL: "https://t.me/s/shop_uz/1234", source: SourceTelegram, want: "shop_uz"},
		{name: "telegram post", rawURL: "https://t.me/newsuz/42", source: SourceTelegram, want: "newsuz"},
		{name: "telegram query", rawURL: "https://t.me/shopuz?start=ref", source: SourceTelegram, want: "shopuz"},
		{name: "telegram escaped query", rawURL: "https://t.me/shopuz%3Fstart%3Dref", source: SourceTelegram, want: "shopuz"},
		{name: "instagram trailing slash", rawURL: "https://www.instagram.com/tashkent.uz/", source: SourceInstagram, want: "tashkent.uz"},
		{name: "instagram reel", rawURL: "https://instagram.com/caféuz/reel/abc", source: SourceInstagram, want: "caféuz"},
		{name: "instagram keeps s segment", rawURL: "https://instagram.com/s/abc", source: SourceInstagram, want: "s"},
		{name: "surrounding whitespace", rawURL: "  https://t.me/bozoruz  ", source: SourceTelegram, want: "bozoruz"},
		{name: "no path", rawURL: "https://t.me/", source: SourceTelegram, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.rawURL, tt.source)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	if _, err := Extract("https://t.me/%zz", SourceTelegram); !errors.Is(err, ErrMalformedURL) {
		t.Errorf("expected ErrMalformedURL, got %v", err)
	}
	if _, err := Extract("https://vk.com/shopuz", Source("vk")); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
	if got := Handle("https://t.me/%zz", SourceTelegram); got != "" {
		t.Errorf("Handle() on malformed url = %q, want empty", got)
	}
}

func TestExtract_ChannelViewStrippedOnce(t *testing.T) {
	handles := []string{"shop_uz", "s", "market", "S"}
	for _, h := range handles {
		direct := Handle("https://t.me/"+h, SourceTelegram)
		viaPrefix := Handle("https://t.me/s/"+h, SourceTelegram)
		if direct != viaPrefix {
			t.Errorf("handle %q: direct %q != channel view %q", h, direct, viaPrefix)
		}
	}

	if got := Handle("https://t.me/s/s/foo", SourceTelegram); got != "s" {
		t.Errorf("expected prefix stripped once, got %q", got)
	}
}

func TestIsQualifying(t *testing.T) {
	tests := []struct {
		handle string
		want   bool
	}{
		{"shop_uz", true},
		{"SHOPUZ", true},
		{"tashkent.uz", true},
		{"market-Uz", true},
		{"uzbek", false},
		{"shop_u", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsQualifying(tt.handle); got != tt.want {
			t.Errorf("IsQualifying(%q) = %v, want %v", tt.handle, got, tt.want)
		}
	}
}

func TestExtractThenQualify(t *testing.T) {
	tests := []struct {
		rawURL string
		source Source
		want   bool
	}{
		{"https://t.me/MarketUZ", SourceTelegram, true},
		{"https://t.me/s/newsuz/77", SourceTelegram, true},
		{"https://t.me/uzbekistan", SourceTelegram, false},
		{"https://instagram.com/cafe.uz/", SourceInstagram, true},
		{"https://instagram.com/cafe/", SourceInstagram, false},
	}
	for _, tt := range tests {
		if got := IsQualifying(Handle(tt.rawURL, tt.source)); got != tt.want {
			t.Errorf("%s: qualifying = %v, want %v", tt.rawURL, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"Shop_UZ":     "shop_uz",
		"tashkent.uz": "tashkentuz",
		"café-uz":     "caf-uz",
		"a b+c":       "abc",
		"":            "",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCandidateDomain(t *testing.T) {
	c := Candidate{Source: SourceTelegram, Handle: "Shop_UZ"}
	if got := c.Domain("uz"); got != "shop_uz.uz" {
		t.Errorf("Domain() = %q", got)
	}
	if got := c.Domain(".uz"); got != "shop_uz.uz" {
		t.Errorf("Domain() with dotted tld = %q", got)
	}
}

func TestCollect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	batches := []Batch{
		{
			Source: SourceTelegram,
			URLs: []string{
				"https://t.me/shop_uz",
				"https://t.me/s/SHOP_UZ",
				"https://t.me/uzbekistan",
				"https://t.me/%zz",
				"https://t.me/newsuz",
			},
		},
		{
			Source: SourceInstagram,
			URLs: []string{
				"https://instagram.com/shop_uz/",
				"https://instagram.com/newsuz",
			},
		},
	}

	got := Collect(batches, logger)

	want := []Candidate{
		{Source: SourceTelegram, Handle: "shop_uz", OriginURL: "https://t.me/shop_uz"},
		{Source: SourceTelegram, Handle: "newsuz", OriginURL: "https://t.me/newsuz"},
		{Source: SourceInstagram, Handle: "shop_uz", OriginURL: "https://instagram.com/shop_uz/"},
		{Source: SourceInstagram, Handle: "newsuz", OriginURL: "https://instagram.com/newsuz"},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseSource(t *testing.T) {
	if s, err := ParseSource(" Telegram "); err != nil || s != SourceTelegram {
		t.Errorf("ParseSource(telegram) = %q, %v", s, err)
	}
	if _, err := ParseSource("vk"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}
