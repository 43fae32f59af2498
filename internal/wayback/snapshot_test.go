package wayback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSnapshotsSortsAndDedups(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"https://web.archive.org/web/20210301000000/https://shop.example/",
		"not a snapshot",
		"https://web.archive.org/web/20190101000000/https://shop.example/",
		"",
		"https://web.archive.org/web/20210301000000/https://shop.example/",
		"https://web.archive.org/web/20190601000000/https://shop.example/",
		"https://web.archive.org/web/2019/https://shop.example/",
	}, "\n")

	snaps, err := LoadSnapshots(strings.NewReader(input), "")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "2019", snaps[0].Period)
	assert.Equal(t, "https://web.archive.org/web/20190101000000/https://shop.example/", snaps[0].URL)
	assert.Equal(t, "https://web.archive.org/web/20190601000000/https://shop.example/", snaps[1].URL)
	assert.Equal(t, "2021", snaps[2].Period)
}

func TestAnchorsKeepsFirstPerPeriod(t *testing.T) {
	t.Parallel()

	anchors := Anchors([]Snapshot{
		{URL: "a", Period: "2019"},
		{URL: "b", Period: "2019"},
		{URL: "c", Period: "2020"},
	})
	assert.Equal(t, []Snapshot{{URL: "a", Period: "2019"}, {URL: "c", Period: "2020"}}, anchors)
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	p, ok := Period("https://web.archive.org/web/20181231235959/https://shop.example/")
	require.True(t, ok)
	assert.Equal(t, "2018", p)

	_, ok = Period("https://shop.example/")
	assert.False(t, ok)
}
