package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

func TestPage(t *testing.T) {
	cases := []struct {
		name                string
		page, limit         int
		wantPage, wantLimit int
	}{
		{"defaults", 0, 0, 1, 20},
		{"negative", -3, -1, 1, 20},
		{"capped limit", 2, 500, 2, 100},
		{"huge page", math.MaxInt64 / 5, 10, maxOffset/10 + 1, 10},
		{"max int page", math.MaxInt, 100, maxOffset/100 + 1, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, limit := Page(tc.page, tc.limit, 20, 100)
			if page != tc.wantPage || limit != tc.wantLimit {
				t.Fatalf("Page(%d, %d) = %d, %d; want %d, %d", tc.page, tc.limit, page, limit, tc.wantPage, tc.wantLimit)
			}
			if off := (page - 1) * limit; off < 0 || off > maxOffset {
				t.Fatalf("offset %d out of range", off)
			}
		})
	}
}

func TestSearchHugePageIsEmpty(t *testing.T) {
	e := newEnv(t)
	driver := e.user(t, model.RoleDriver, true)
	e.tripAt(t, driver, testNow.Add(48*time.Hour), 3)

	got, err := e.trip.Search(context.Background(), nil, SearchInput{Page: math.MaxInt64 / 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Total != 1 || len(got.Results) != 0 {
		t.Fatalf("total=%d results=%d, want 1 and 0", got.Total, len(got.Results))
	}
	if got.Page != maxOffset/got.Limit+1 {
		t.Fatalf("page=%d", got.Page)
	}

	notes, err := e.notifier.List(context.Background(), driver.UserID, math.MaxInt, 20)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes.Results) != 0 {
		t.Fatalf("notifications on a huge page: %+v", notes.Results)
	}
}
