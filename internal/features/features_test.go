package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/qrlens/internal/whitelist"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://sberbank.ru/login", "sberbank.ru"},
		{"HTTPS://Example.COM:8443/path", "example.com"},
		{"http://user:pw@host.ru/", "host.ru"},
		{"http://[::1]:80/x", "::1"},
		{"example.com/path", "example.com"},
		{"example.com:8080/x", "example.com"},
		{"sberbank.ru:443/login", "sberbank.ru"},
		{"Gosuslugi.RU:8443", "gosuslugi.ru"},
		{"example.com?q=1", "example.com"},
		{"example.com#top", "example.com"},
		{"//cdn.example.com/x", "cdn.example.com"},
		{"SBER://Transfer?sum=1", "transfer"},
		{"tg://resolve?domain=promo", "resolve"},
		{"sberpay://pay/123", "pay"},
		{"%zz/abc", "%zz"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDomain(tt.in))
		})
	}
}

func TestDeepLinkScheme(t *testing.T) {
	s, ok := DeepLinkScheme("WhatsApp://send?phone=1")
	assert.True(t, ok)
	assert.Equal(t, "whatsapp://", s)

	_, ok = DeepLinkScheme("https://t.me/x")
	assert.False(t, ok)
	_, ok = DeepLinkScheme("telegram://x")
	assert.False(t, ok)
}

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, Entropy(""))
	assert.Equal(t, 0.0, Entropy("aaaa"))
	assert.InDelta(t, 1.0, Entropy("ab"), 1e-9)
	assert.InDelta(t, 2.75, Entropy("sberbank"), 1e-9)
	// runes, not bytes
	assert.InDelta(t, 2.0, Entropy("сбер"), 1e-9)
}

func TestFirstLabelAndIP(t *testing.T) {
	assert.Equal(t, "a", FirstLabel("a.b.c"))
	assert.Equal(t, "localhost", FirstLabel("localhost"))

	assert.True(t, IsIPv4Literal("192.168.1.1"))
	assert.True(t, IsIPv4Literal("999.1.1.1"))
	assert.False(t, IsIPv4Literal("1.2.3"))
	assert.False(t, IsIPv4Literal("1.2.3.4.5"))
	assert.False(t, IsIPv4Literal("a.b.c.d"))
}

func TestLevenshtein(t *testing.T) {
	var d Levenshtein
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"sberrbank.ru", "sberbank.ru", 1},
		{"сбер", "сбор", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, d.Distance(tt.b, tt.a))
		})
	}
}

func TestNearest(t *testing.T) {
	entry, dist, ok := Nearest(Levenshtein{}, "sberrbank.ru", []string{"vtb.ru", "sberbank.ru", "sberbank.com"})
	require.True(t, ok)
	assert.Equal(t, "sberbank.ru", entry)
	assert.Equal(t, 1, dist)

	_, _, ok = Nearest(Levenshtein{}, "x", nil)
	assert.False(t, ok)
}

func TestExtract(t *testing.T) {
	ex := NewExtractor(whitelist.New("sberbank.ru", "gosuslugi.ru"), nil)

	t.Run("brand url", func(t *testing.T) {
		v := ex.Extract("https://sberbank.ru/login")
		assert.InDelta(t, 25.0/200.0, v[0], 1e-9)
		assert.Equal(t, 1.0, v[1])
		assert.Equal(t, 0.0, v[2])
		assert.Equal(t, 0.0, v[3])
		assert.InDelta(t, 2.75, v[4], 1e-9)
		assert.Equal(t, 0.0, v[5])
	})

	t.Run("www prefix is ignored for brand distance", func(t *testing.T) {
		v := ex.Extract("https://www.sberrbank.ru/")
		assert.Equal(t, 2.0, v[1])
		assert.Equal(t, 1.0, v[5])
	})

	t.Run("ip literal", func(t *testing.T) {
		v := ex.Extract("https://192.168.1.1/admin")
		assert.Equal(t, 3.0, v[1])
		assert.Equal(t, 1.0, v[3])
	})

	t.Run("deep link specials", func(t *testing.T) {
		v := ex.Extract("sber://transfer?account=79001234567&sum=50000")
		assert.Equal(t, 4.0, v[2])
		assert.Equal(t, 0.0, v[1])
	})

	t.Run("empty brand list sentinel", func(t *testing.T) {
		v := NewExtractor(whitelist.New(), Levenshtein{}).Extract("https://a.com")
		assert.Equal(t, float64(NoBrandDistance), v[5])
	})

	t.Run("deterministic", func(t *testing.T) {
		u := "https://x7k2m9pq.com/malware?id=1"
		assert.Equal(t, ex.Extract(u), ex.Extract(u))
	})

	t.Run("long urls exceed one", func(t *testing.T) {
		long := "https://a.com/" + string(make([]byte, 400))
		assert.Greater(t, ex.Extract(long)[0], 1.0)
	})
}

func TestVectorMap(t *testing.T) {
	v := Vector{0.1, 2, 3, 0, 2.5, 10}
	m := v.Map()
	assert.Len(t, m, Size)
	assert.Equal(t, 2.5, m["entropy"])
	assert.Equal(t, 10.0, m["levenshtein_min"])
	assert.False(t, math.IsNaN(m["url_length"]))
}

func FuzzExtract(f *testing.F) {
	for _, seed := range []string{
		"",
		"https://sberbank.ru/login",
		"sberbank.ru:443/login",
		"sber://transfer?sum=1",
		"http://[::1",
		"%zz/abc",
		"https://сбербанк.рф/",
		"\xff\xfe://\x00",
		"::::////????",
	} {
		f.Add(seed)
	}
	ex := NewExtractor(whitelist.New("sberbank.ru", "gosuslugi.ru"), nil)
	f.Fuzz(func(t *testing.T, s string) {
		v := ex.Extract(s)
		require.Len(t, v, Size)
		for i, x := range v {
			assert.False(t, math.IsNaN(x), "feature %d is NaN for %q", i, s)
		}
	})
}
