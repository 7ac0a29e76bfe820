package checkin

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	daressalaam := Coordinates{Latitude: -6.7924, Longitude: 39.2083}
	nairobi := Coordinates{Latitude: -1.2921, Longitude: 36.8219}

	tests := []struct {
		name      string
		a, b      Coordinates
		want      float64 // meters
		tolerance float64
	}{
		{name: "same point", a: daressalaam, b: daressalaam, want: 0, tolerance: 0.001},
		{
			name: "across the street",
			a:    daressalaam,
			b:    Coordinates{Latitude: daressalaam.Latitude + 0.0009, Longitude: daressalaam.Longitude},
			want: 100, tolerance: 1,
		},
		{name: "city to city", a: daressalaam, b: nairobi, want: 670000, tolerance: 15000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Haversine() = %.1fm, want %.1fm (±%.1f)", got, tt.want, tt.tolerance)
			}
			if back := Haversine(tt.b, tt.a); math.Abs(back-got) > 0.001 {
				t.Errorf("not symmetric: %f != %f", back, got)
			}
		})
	}
}
