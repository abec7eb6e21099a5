package service

import "time"

// NextStreak returns the login streak after a login at now, comparing calendar dates in loc.
// A missing previous login or a gap of more than one day starts over at 1. A previous
// login dated after now (clock skew) leaves the streak as it was.
func NextStreak(lastLogin *time.Time, streak int, now time.Time, loc *time.Location) int {
	if lastLogin == nil {
		return 1
	}
	if loc == nil {
		loc = time.UTC
	}

	days := calendarDays(lastLogin.In(loc), now.In(loc))
	switch {
	case days < 0:
		return streak
	case days == 0:
		return max(streak, 1)
	case days == 1:
		return streak + 1
	default:
		return 1
	}
}

// calendarDays counts midnights between a and b in their (shared) location.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
