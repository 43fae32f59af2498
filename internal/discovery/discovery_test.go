package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	collyfetcher "github.com/JakeFAU/wayback-journey/internal/fetcher/colly"
)

type fakeGetter struct {
	resp collyfetcher.Response
	err  error
}

func (f *fakeGetter) Fetch(_ context.Context, url string) (collyfetcher.Response, error) {
	if f.err != nil {
		return collyfetcher.Response{}, f.err
	}
	resp := f.resp
	if resp.URL == "" {
		resp.URL = url
	}
	return resp, nil
}

const anchor = "https://web.archive.org/web/20200101000000/https://shop.example/"

const anchorHTML = `<html><body>
<nav>
  <a href="/web/20200101000000/https://shop.example/products/shoes">Shoes</a>
  <a href="/web/20200101000000/https://shop.example/products/shoes#reviews">Shoes again</a>
  <a href="/web/20200101000000/https://shop.example/cart?step=1">Cart</a>
  <a href="/web/20200101000000/https://other.example/deals">Elsewhere</a>
  <a href="/web/20200101000000/https://shop.example/privacy/">Privacy</a>
  <a href="/web/20200101000000/https://shop.example/static/app.bundle">Bundle</a>
  <a href="/web/20200101000000/https://shop.example/logo.svg">Logo</a>
  <a href="mailto:help@shop.example">Mail</a>
  <a href="#top">Top</a>
  <a href="   ">Blank</a>
</nav>
<map><area href="/web/20200101000000/https://shop.example/stores" /></map>
</body></html>`

func TestDiscoverFiltersLinks(t *testing.T) {
	t.Parallel()

	d, err := New(&fakeGetter{resp: collyfetcher.Response{Body: []byte(anchorHTML)}}, Config{}, nil)
	require.NoError(t, err)

	links, err := d.Discover(context.Background(), anchor)
	require.NoError(t, err)
	assert.Equal(t, []string{
		anchor,
		"https://web.archive.org/web/20200101000000/https://shop.example/products/shoes",
		"https://web.archive.org/web/20200101000000/https://shop.example/cart?step=1",
		"https://web.archive.org/web/20200101000000/https://shop.example/stores",
	}, links)
}

func TestDiscoverRespectsMaxLinks(t *testing.T) {
	t.Parallel()

	d, err := New(&fakeGetter{resp: collyfetcher.Response{Body: []byte(anchorHTML)}}, Config{MaxLinks: 2}, nil)
	require.NoError(t, err)

	links, err := d.Discover(context.Background(), anchor)
	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.Equal(t, anchor, links[0])
}

func TestDiscoverPropagatesFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("unreachable")
	d, err := New(&fakeGetter{err: boom}, Config{}, nil)
	require.NoError(t, err)

	_, err = d.Discover(context.Background(), anchor)
	require.ErrorIs(t, err, boom)
}

func TestNewRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeGetter{}, Config{ExcludePatterns: []string{"("}}, nil)
	require.Error(t, err)

	_, err = New(nil, Config{}, nil)
	require.Error(t, err)
}

func TestRepairEmbeddedScheme(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://web.archive.org/web/2020id_/http://shop.example/a",
		RepairEmbeddedScheme("https://web.archive.org/web/2020id_/http:/shop.example/a"))
	assert.Equal(t,
		"https://web.archive.org/web/2020/https://shop.example/a",
		RepairEmbeddedScheme("https://web.archive.org/web/2020/https://shop.example/a"))
}

func TestMeaningful(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"/":                  true,
		"/products/shoes":    true,
		"/search?q=boots":    true,
		"/img/banner":        false,
		"/feed.xml":          false,
		"/API/v1/items":      false,
		"/downloads/app.zip": false,
		"/about?ref=a.css":   true,
	}
	for in, want := range cases {
		assert.Equal(t, want, Meaningful(in), in)
	}
}
