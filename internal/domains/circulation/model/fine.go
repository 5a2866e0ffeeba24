package model

import "time"

const day = 24 * time.Hour

// ComputeFine charges one unit per started day past due. Elapsed time is
// divided by 24h, calendar days are not counted.
func ComputeFine(due, returned time.Time) int {
	if !returned.After(due) {
		return 0
	}
	late := returned.Sub(due)
	days := late / day
	if late%day != 0 {
		days++
	}
	return int(days)
}
