package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := make([]int, 45)
	for i := range items {
		items[i] = i + 1
	}

	tests := []struct {
		name      string
		page      Page
		wantPage  int
		wantLimit int
		wantFirst int
		wantLen   int
	}{
		{name: "defaults", page: Page{}, wantPage: 1, wantLimit: DefaultPageLimit, wantFirst: 1, wantLen: 20},
		{name: "second page", page: Page{Page: 2, Limit: 20}, wantPage: 2, wantLimit: 20, wantFirst: 21, wantLen: 20},
		{name: "last partial page", page: Page{Page: 3, Limit: 20}, wantPage: 3, wantLimit: 20, wantFirst: 41, wantLen: 5},
		{name: "past the end", page: Page{Page: 9, Limit: 20}, wantPage: 9, wantLimit: 20, wantLen: 0},
		{name: "limit clamped", page: Page{Page: 1, Limit: 1000}, wantPage: 1, wantLimit: MaxPageLimit, wantFirst: 1, wantLen: 45},
		{name: "negative page", page: Page{Page: -3, Limit: 10}, wantPage: 1, wantLimit: 10, wantFirst: 1, wantLen: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.page)
			assert.Equal(t, 45, got.Total)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Len(t, got.Data, tt.wantLen)
			assert.NotNil(t, got.Data)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, got.Data[0])
			}
		})
	}
}
