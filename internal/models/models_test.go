package models

import "testing"

func TestCapacityKWp(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"5", 5, true},
		{" 7.5 ", 7.5, true},
		{"3,2", 3.2, true},
		{"0", 0, true},
		{"", DefaultCapacityKWp, false},
		{"five", DefaultCapacityKWp, false},
		{"-2", DefaultCapacityKWp, false},
		{"NaN", DefaultCapacityKWp, false},
		{"Inf", DefaultCapacityKWp, false},
	}

	for _, tt := range tests {
		got, ok := EnergySource{NominalCapacity: tt.raw}.CapacityKWp()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CapacityKWp(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
