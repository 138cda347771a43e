package articles

import (
	"reflect"
	"testing"

	"technexus/internal/models"
)

var sample = []models.Article{
	{ID: "1", Title: "Valkey in practice", Summary: "caching", Category: "Engineering", Tags: []string{"cache", "valkey"}},
	{ID: "2", Title: "Launch notes", Summary: "What shipped", Category: "Product", Tags: []string{"release"}},
	{ID: "3", Title: "Postgres tips", Summary: "indexes", Category: "Engineering", Tags: []string{"db", "Cache"}},
	{ID: "4", Title: "Untitled", Category: " ", Tags: []string{""}},
}

func TestDeriveFacets(t *testing.T) {
	got := DeriveFacets(sample)
	wantCats := []string{"all", "Engineering", "Product"}
	wantTags := []string{"all", "cache", "valkey", "release", "db", "Cache"}
	if !reflect.DeepEqual(got.Categories, wantCats) {
		t.Errorf("Categories = %v, want %v", got.Categories, wantCats)
	}
	if !reflect.DeepEqual(got.Tags, wantTags) {
		t.Errorf("Tags = %v, want %v", got.Tags, wantTags)
	}

	empty := DeriveFacets(nil)
	if len(empty.Categories) != 1 || len(empty.Tags) != 1 {
		t.Errorf("DeriveFacets(nil) = %+v, want only the sentinel", empty)
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []models.ID
	}{
		{name: "no constraint", q: Query{}, want: []models.ID{"1", "2", "3", "4"}},
		{name: "all sentinel", q: Query{Category: All, Tag: All}, want: []models.ID{"1", "2", "3", "4"}},
		{name: "search title", q: Query{Search: "LAUNCH"}, want: []models.ID{"2"}},
		{name: "search summary", q: Query{Search: "index"}, want: []models.ID{"3"}},
		{name: "search tag case-insensitive", q: Query{Search: "cache"}, want: []models.ID{"1", "3"}},
		{name: "category", q: Query{Category: "Engineering"}, want: []models.ID{"1", "3"}},
		{name: "tag exact", q: Query{Tag: "cache"}, want: []models.ID{"1"}},
		{name: "combined", q: Query{Search: "tips", Category: "Engineering", Tag: "db"}, want: []models.ID{"3"}},
		{name: "no match", q: Query{Category: "Product", Tag: "db"}, want: []models.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []models.ID{}
			for _, a := range Filter(sample, tt.q) {
				got = append(got, a.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%+v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}
