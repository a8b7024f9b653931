package paging

import (
	"net/http/httptest"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestParseStart(t *testing.T) {
	tests := map[string]int{
		"/":           1,
		"/?start=21":  21,
		"/?start=0":   1,
		"/?start=-4":  1,
		"/?start=abc": 1,
	}
	for target, want := range tests {
		if got := ParseStart(httptest.NewRequest("GET", target, nil)); got != want {
			t.Errorf("%s: got %d, want %d", target, got, want)
		}
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		start     int
		wantFirst int
		wantLen   int
		wantRange Range
	}{
		{"first page", 45, 1, 1, 20, Range{Start: 1, End: 20, Total: 45, HasNext: true, PrevStart: 1, NextStart: 21}},
		{"middle page", 45, 21, 21, 20, Range{Start: 21, End: 40, Total: 45, HasPrev: true, HasNext: true, PrevStart: 1, NextStart: 41}},
		{"last page", 45, 41, 41, 5, Range{Start: 41, End: 45, Total: 45, HasPrev: true, PrevStart: 21, NextStart: 46}},
		{"past the end", 45, 300, 41, 5, Range{Start: 41, End: 45, Total: 45, HasPrev: true, PrevStart: 21, NextStart: 46}},
		{"single short page", 3, 1, 1, 3, Range{Start: 1, End: 3, Total: 3, PrevStart: 1, NextStart: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, rg := Page(seq(tt.total), tt.start)
			if len(rows) != tt.wantLen || rows[0] != tt.wantFirst {
				t.Errorf("rows: len %d first %d", len(rows), rows[0])
			}
			if rg != tt.wantRange {
				t.Errorf("range = %+v, want %+v", rg, tt.wantRange)
			}
		})
	}
}

func TestPageEmpty(t *testing.T) {
	rows, rg := Page([]string{}, 5)
	if len(rows) != 0 || rg.Start != 0 || rg.HasNext {
		t.Errorf("unexpected %v %+v", rows, rg)
	}
}
