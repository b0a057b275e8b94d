package models

import "testing"

func TestCohort_ProgramLength(t *testing.T) {
	tests := []struct {
		name    string
		c       Cohort
		want    int
		wantErr bool
	}{
		{"explicit days", Cohort{StartDate: "2025-10-01", EndDate: "2025-12-31", ProgramDays: 14}, 14, false},
		{"inclusive span", Cohort{StartDate: "2025-10-01", EndDate: "2025-10-14"}, 14, false},
		{"across month end", Cohort{StartDate: "2025-10-25", EndDate: "2025-11-07"}, 14, false},
		{"single day", Cohort{StartDate: "2025-10-01", EndDate: "2025-10-01"}, 1, false},
		{"no end", Cohort{StartDate: "2025-10-01"}, 0, true},
		{"ends before start", Cohort{StartDate: "2025-10-14", EndDate: "2025-10-01"}, 0, true},
		{"bad end", Cohort{StartDate: "2025-10-01", EndDate: "2025-13-01"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.ProgramLength()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ProgramLength = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCohort_ProgramDay(t *testing.T) {
	c := Cohort{ID: "c1", StartDate: "2025-10-01", ProgramDays: 14}
	tests := []struct {
		date string
		want int
	}{
		{"2025-10-01", 1},
		{"2025-10-14", 14},
		{"2025-10-15", 15},
		{"2025-09-29", -1},
	}
	for _, tt := range tests {
		got, err := c.ProgramDay(tt.date)
		if err != nil {
			t.Fatalf("ProgramDay(%s) failed: %v", tt.date, err)
		}
		if got != tt.want {
			t.Errorf("ProgramDay(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
	if _, err := c.ProgramDay("14/10/2025"); err == nil {
		t.Error("expected an error for a malformed date")
	}
}
