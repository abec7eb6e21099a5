package service

import "math"

// Engagement targets. Each metric contributes one third of the score once its target is met.
const (
	ReferralTarget        = 10
	LoginStreakTarget     = 5
	CommunityActionTarget = 3
)

// Metric is one engagement counter measured against its target.
type Metric struct {
	Current   int  `json:"current"`
	Target    int  `json:"target"`
	Completed bool `json:"completed"`
	Remaining int  `json:"remaining"`
}

// Progress is the engagement score for one user.
type Progress struct {
	Progress         int    `json:"progress"`
	RewardUnlocked   bool   `json:"reward_unlocked"`
	Referrals        Metric `json:"referrals"`
	LoginStreak      Metric `json:"login_streak"`
	CommunityActions Metric `json:"community_actions"`
}

func newMetric(current, target int) Metric {
	return Metric{
		Current:   current,
		Target:    target,
		Completed: current >= target,
		Remaining: max(target-current, 0),
	}
}

// share is the capped fraction of target reached, in [0, 1].
func share(current, target int) float64 {
	return float64(min(max(current, 0), target)) / float64(target)
}

// ComputeProgress scores referrals, login streak and community actions. A persisted unlock
// stays unlocked even if the live score later drops below 100.
func ComputeProgress(referrals, streak, actions int, persistedUnlock bool) Progress {
	score := 100 * (share(referrals, ReferralTarget)/3 +
		share(streak, LoginStreakTarget)/3 +
		share(actions, CommunityActionTarget)/3)
	progress := int(math.Round(score))

	return Progress{
		Progress:         progress,
		RewardUnlocked:   persistedUnlock || progress >= 100,
		Referrals:        newMetric(referrals, ReferralTarget),
		LoginStreak:      newMetric(streak, LoginStreakTarget),
		CommunityActions: newMetric(actions, CommunityActionTarget),
	}
}
