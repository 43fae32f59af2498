package wayback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want EffectiveLocation
	}{
		{
			name: "archive wrapped with single slash scheme",
			raw:  "https://archive.example/web/20210101000000/http:/shop.example/sale?x=1",
			want: EffectiveLocation{Host: "shop.example", PathAndQuery: "/sale?x=1"},
		},
		{
			name: "archive wrapped with modifier",
			raw:  "https://web.archive.org/web/20190305120000id_/https://www.Shop.example/cart",
			want: EffectiveLocation{Host: "shop.example", PathAndQuery: "/cart"},
		},
		{
			name: "plain url",
			raw:  "https://Shop.Example/products/shoes",
			want: EffectiveLocation{Host: "shop.example", PathAndQuery: "/products/shoes"},
		},
		{
			name: "port and www stripped",
			raw:  "https://WWW.Shop.Example:443",
			want: EffectiveLocation{Host: "shop.example", PathAndQuery: "/"},
		},
		{
			name: "host led without scheme",
			raw:  "WWW.Shop.Example:443",
			want: EffectiveLocation{Host: "shop.example", PathAndQuery: "/"},
		},
		{
			name: "relative path",
			raw:  "/about?team=1",
			want: EffectiveLocation{Host: "", PathAndQuery: "/about?team=1"},
		},
		{
			name: "malformed",
			raw:  "http://[::1",
			want: EffectiveLocation{Host: "", PathAndQuery: "http://[::1"},
		},
		{
			name: "opaque scheme",
			raw:  "mailto:help@shop.example",
			want: EffectiveLocation{Host: "", PathAndQuery: "help@shop.example"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://archive.example/web/20210101000000/http:/shop.example/sale?x=1",
		"https://www.shop.example:8443/a/b%20c?q=1&r=2",
		"http://shop.example",
		"https://web.archive.org/web/20200101000000/https://shop.example/help/",
	}
	for _, raw := range inputs {
		first := Normalize(raw)
		require.NotEmpty(t, first.Host, raw)
		again := Normalize("http://" + first.Host + first.PathAndQuery)
		assert.Equal(t, first, again, raw)
	}
}

func TestCanonicalHostEquivalence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Normalize("WWW.Shop.Example:443").Host, Normalize("shop.example").Host)
	assert.Equal(t, "shop.example", CanonicalHost("WWW.SHOP.EXAMPLE:80"))
	assert.Equal(t, "::1", CanonicalHost("[::1]:8080"))
	assert.Equal(t, "", CanonicalHost(""))
}

func TestUnwrapLeavesPlainURLs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://shop.example/web/2020/", Unwrap("https://shop.example/web/2020/"))
	assert.Equal(t,
		"https://shop.example/x",
		Unwrap("https://web.archive.org/web/20200101000000/https:/shop.example/x"),
	)
}
