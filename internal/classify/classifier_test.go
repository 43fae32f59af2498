package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/wayback-journey/internal/taxonomy"
)

func testMatchers() *taxonomy.MatcherSet {
	return taxonomy.Compile(taxonomy.Taxonomy{
		taxonomy.StageAwareness: {{TypeName: "Homepage", Patterns: []string{"/"}}},
		taxonomy.StageInterest:  {{TypeName: "Products", Patterns: []string{"/product/*"}}},
		taxonomy.StageDecision:  {{TypeName: "Sale Product", Patterns: []string{"/product/sale/*"}}},
	}, nil)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := New(testMatchers())
	home := "https://web.archive.org/web/20200101000000/https://www.shop.example/"
	links := []string{
		home,
		"https://web.archive.org/web/20200101000000/https:/shop.example/product/sale/x",
		"https://web.archive.org/web/20200101000000/https://shop.example/product/shoes",
		"https://web.archive.org/web/20200101000000/https://other.example/product/shoes",
		"https://web.archive.org/web/20200101000000/https://shop.example/about",
		"/product/relative",
	}

	got := c.Classify(links, home)
	assert.Equal(t, []Link{
		{URL: links[0], Stage: taxonomy.StageAwareness, TypeName: "Homepage"},
		{URL: links[1], Stage: taxonomy.StageDecision, TypeName: "Sale Product"},
		{URL: links[2], Stage: taxonomy.StageInterest, TypeName: "Products"},
		{URL: links[5], Stage: taxonomy.StageInterest, TypeName: "Products"},
	}, got)
}

func TestClassifyWithoutHomeKeepsAllHosts(t *testing.T) {
	t.Parallel()

	c := New(testMatchers())
	got := c.Classify([]string{"https://other.example/product/x"}, "")
	assert.Len(t, got, 1)
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	c := New(testMatchers())
	links := []string{"https://shop.example/product/sale/a", "https://shop.example/", "https://shop.example/product/b"}
	first := c.Classify(links, "https://shop.example/")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Classify(links, "https://shop.example/"))
	}
}

func TestClassifyEmptyMatcherSet(t *testing.T) {
	t.Parallel()

	c := New(taxonomy.Compile(nil, nil))
	assert.Empty(t, c.Classify([]string{"https://shop.example/"}, "https://shop.example/"))
}
