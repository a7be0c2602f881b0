package ingest

import "testing"

func TestProgressCadence(t *testing.T) {
	cases := []struct {
		total int
		want  int
	}{
		{0, 0},
		{999, 0},
		{1000, 0},
		{1001, 10},
		{1005, 10},
		{1099, 10},
		{10000, 10},
	}
	for _, tc := range cases {
		p := newProgress(tc.total)
		got := 0
		for processed := 1; processed <= tc.total; processed++ {
			if p.step(processed) {
				got++
			}
		}
		if got != tc.want {
			t.Errorf("total %d: %d notifications, want %d", tc.total, got, tc.want)
		}
	}
}

func TestProgressThresholdsAreEvenlySpaced(t *testing.T) {
	p := newProgress(10000)
	var at []int
	for processed := 1; processed <= 10000; processed++ {
		if p.step(processed) {
			at = append(at, processed)
		}
	}
	for i, v := range at {
		if v != (i+1)*1000 {
			t.Fatalf("notification %d at %d, want %d", i, v, (i+1)*1000)
		}
	}
}
