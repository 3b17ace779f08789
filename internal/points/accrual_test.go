package points

import "testing"

func TestForWatchSeconds(t *testing.T) {
	cases := []struct {
		name            string
		watchSeconds    int64
		secondsPerPoint int64
		want            int64
	}{
		{"exact multiple", 100, 10, 10},
		{"partial interval discarded", 109, 10, 10},
		{"below one interval", 9, 10, 0},
		{"zero watch time", 0, 10, 0},
		{"negative watch time", -30, 10, 0},
		{"zero rate", 100, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ForWatchSeconds(tc.watchSeconds, tc.secondsPerPoint); got != tc.want {
				t.Fatalf("ForWatchSeconds(%d, %d) = %d, want %d", tc.watchSeconds, tc.secondsPerPoint, got, tc.want)
			}
		})
	}
}
