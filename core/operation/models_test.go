package operation

import (
	"testing"

	"github.com/volatiletech/null/v8"
)

func TestTrip_OccupancyRate(t *testing.T) {
	tests := []struct {
		name      string
		checkedIn int
		capacity  int
		want      float64
	}{
		{name: "empty", checkedIn: 0, capacity: 42, want: 0},
		{name: "half", checkedIn: 21, capacity: 42, want: 0.5},
		{name: "overbooked is not clamped", checkedIn: 21, capacity: 14, want: 1.5},
		{name: "no capacity", checkedIn: 3, capacity: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := Trip{CheckedInCount: tt.checkedIn, Vehicle: VehicleRef{Capacity: tt.capacity}}
			if got := trip.OccupancyRate(); got != tt.want {
				t.Errorf("OccupancyRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrip_KmDriven(t *testing.T) {
	if got := (Trip{}).KmDriven(); got != 0 {
		t.Errorf("KmDriven() of an open trip = %d, want 0", got)
	}
	trip := Trip{KmStart: null.IntFrom(1000), KmEnd: null.IntFrom(1050)}
	if got := trip.KmDriven(); got != 50 {
		t.Errorf("KmDriven() = %d, want 50", got)
	}
}

func TestDayFilter_Match(t *testing.T) {
	day := Day{Date: "2025-03-10", Status: DayPublished}
	tests := []struct {
		name   string
		filter DayFilter
		want   bool
	}{
		{name: "empty", filter: DayFilter{}, want: true},
		{name: "status", filter: DayFilter{Status: DayPublished}, want: true},
		{name: "other status", filter: DayFilter{Status: DayDraft}, want: false},
		{name: "from is inclusive", filter: DayFilter{From: "2025-03-10"}, want: true},
		{name: "to is inclusive", filter: DayFilter{To: "2025-03-10"}, want: true},
		{name: "before range", filter: DayFilter{From: "2025-03-11"}, want: false},
		{name: "after range", filter: DayFilter{To: "2025-03-09"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(day); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
