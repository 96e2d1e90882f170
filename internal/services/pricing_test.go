package services

import "testing"

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name         string
		totalAmount  int64
		totalCredits int64
		want         *int64
	}{
		{"no purchases", 0, 0, nil},
		{"negative credits", 100, -1, nil},
		{"exact division", 550000, 10, ptr(55000)},
		{"rounds down", 100, 3, ptr(33)},
		{"rounds up", 200, 3, ptr(67)},
		{"rounds half up", 5, 2, ptr(3)},
		{"zero amount", 0, 5, ptr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitPrice(tt.totalAmount, tt.totalCredits)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("UnitPrice(%d, %d) = %d, want nil", tt.totalAmount, tt.totalCredits, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("UnitPrice(%d, %d) = nil, want %d", tt.totalAmount, tt.totalCredits, *tt.want)
			}
			if *got != *tt.want {
				t.Fatalf("UnitPrice(%d, %d) = %d, want %d", tt.totalAmount, tt.totalCredits, *got, *tt.want)
			}
		})
	}
}

func ptr(v int64) *int64 {
	return &v
}
