package schedule

import (
	"math/rand"
	"sort"
	"time"
)

// NextWindow returns the next suitable posting time avoiding quiet hours.
func NextWindow(now time.Time, quietHours []int) time.Time {
	isQuiet := func(h int) bool {
		for _, q := range quietHours {
			if q == h {
				return true
			}
		}
		return false
	}
	for i := 0; i < 48; i++ { // search up to 2 days ahead
		cand := now.Add(time.Duration(i) * time.Hour)
		if !isQuiet(cand.Hour()) {
			return cand
		}
	}
	return now.Add(15 * time.Minute)
}

// SlotTimes spreads n post slots across the week starting at weekStart
// (UTC midnight). Slots land on evenly spaced days at randomized non-quiet
// hours, returned in chronological order.
func SlotTimes(rng *rand.Rand, weekStart time.Time, n int, quietHours []int) []time.Time {
	quiet := make(map[int]bool, len(quietHours))
	for _, q := range quietHours {
		quiet[q] = true
	}
	var hours []int
	for h := 0; h < 24; h++ {
		if !quiet[h] {
			hours = append(hours, h)
		}
	}
	if len(hours) == 0 {
		hours = []int{12}
	}

	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		day := i * 7 / n
		h := hours[rng.Intn(len(hours))]
		t := weekStart.AddDate(0, 0, day).Add(time.Duration(h)*time.Hour + time.Duration(rng.Intn(60))*time.Minute)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FirstCommentDelay is 15-45 minutes after the post goes up.
func FirstCommentDelay(rng *rand.Rand) time.Duration {
	return 15*time.Minute + time.Duration(rng.Intn(31))*time.Minute
}

// NextCommentDelay is 5-25 minutes after the chronologically previous
// comment, regardless of which comment it replies to.
func NextCommentDelay(rng *rand.Rand) time.Duration {
	return 5*time.Minute + time.Duration(rng.Intn(21))*time.Minute
}
