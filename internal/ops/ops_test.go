package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fetchnfeed/internal/model"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name    string
		limit   int
		offset  int
		want    []int
		hasMore bool
	}{
		{name: "default limit", limit: 0, offset: 0, want: []int{1, 2, 3, 4, 5}},
		{name: "first page", limit: 2, offset: 0, want: []int{1, 2}, hasMore: true},
		{name: "middle page", limit: 2, offset: 2, want: []int{3, 4}, hasMore: true},
		{name: "last page", limit: 2, offset: 4, want: []int{5}},
		{name: "offset past end", limit: 2, offset: 10, want: []int{}},
		{name: "negative offset", limit: 2, offset: -1, want: []int{1, 2}, hasMore: true},
		{name: "negative limit returns all", limit: -1, offset: 1, want: []int{2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page := paginate(items, tt.limit, tt.offset)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.hasMore, page.HasMore)
			require.Equal(t, 5, page.Total)
		})
	}
}

func TestPaginate_ClampsLimit(t *testing.T) {
	_, page := paginate(make([]int, 10), MaxListLimit+1, 0)
	require.Equal(t, MaxListLimit, page.Limit)
}

func TestSortArticles_NewestFirstNumerically(t *testing.T) {
	// Same instant in different zones must not sort as strings would.
	east := time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("UTC+9", 9*3600))
	west := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)

	articles := []model.Article{
		{ID: "tokyo-0901", PublishedAt: ptr(east.Add(time.Minute))}, // 00:01 UTC
		{ID: "fetched-only", FetchedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "utc-0100", PublishedAt: &west},
	}
	SortArticles(articles)

	ids := []string{articles[0].ID, articles[1].ID, articles[2].ID}
	require.Equal(t, []string{"fetched-only", "utc-0100", "tokyo-0901"}, ids)
}

func TestSortByStarredAt_NilLast(t *testing.T) {
	articles := []model.Article{
		{ID: "none"},
		{ID: "early", StarredAt: daysAgo(3)},
		{ID: "late", StarredAt: daysAgo(1)},
	}
	sortByStarredAt(articles)

	require.Equal(t, "late", articles[0].ID)
	require.Equal(t, "early", articles[1].ID)
	require.Equal(t, "none", articles[2].ID)
}

func TestRemoveWhere_DoesNotModifyInput(t *testing.T) {
	in := []model.Tag{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out, n := removeWhere(in, func(tag *model.Tag) bool { return tag.ID == "b" })

	require.Equal(t, 1, n)
	require.Len(t, out, 2)
	require.Equal(t, "b", in[1].ID)
}

func TestReplaceAt_Copies(t *testing.T) {
	in := []string{"a", "b"}
	out := replaceAt(in, 1, "z")

	require.Equal(t, []string{"a", "z"}, out)
	require.Equal(t, []string{"a", "b"}, in)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab", truncate("abc", 2))
	require.Equal(t, "héé", truncate("hééllo", 3))
}
