package numbers

import "time"

const (
	scoreBase           = 100
	scoreRegistered     = 100
	scoreAreaCodeMatch  = 20
	dailyCallPenalty    = 2
	dailyCallPenaltyCap = 50
	recentUsePenalty    = 30
	recentUseWindow     = 5 * time.Minute
	warmUsePenalty      = 10
	warmUseWindow       = 30 * time.Minute
	spamPenalty         = 50
)

// Score is the explainable breakdown behind a number's selection.
type Score struct {
	NumberID   string `json:"number_id"`
	Number     string `json:"number"`
	Base       int    `json:"base"`
	Registered int    `json:"registered"`
	AreaCode   int    `json:"area_code"`
	Usage      int    `json:"usage"`
	Recency    int    `json:"recency"`
	Spam       int    `json:"spam"`
	Total      int    `json:"total"`
}

// ScoreNumber scores candidate n as caller ID for target at now. Higher is better.
func ScoreNumber(n PhoneNumber, target string, now time.Time) Score {
	s := Score{NumberID: n.ID, Number: n.Number, Base: scoreBase}
	if n.VendorRegistered() {
		s.Registered = scoreRegistered
	}
	if ac := AreaCode(target); ac != "" && ac == AreaCode(n.Number) {
		s.AreaCode = scoreAreaCodeMatch
	}
	s.Usage = -min(n.DailyCalls*dailyCallPenalty, dailyCallPenaltyCap)
	if n.LastUsedAt != nil {
		since := now.Sub(*n.LastUsedAt)
		switch {
		case since < recentUseWindow:
			s.Recency = -recentUsePenalty
		case since < warmUseWindow:
			s.Recency = -warmUsePenalty
		}
	}
	if n.IsSpam {
		s.Spam = -spamPenalty
	}
	s.Total = s.Base + s.Registered + s.AreaCode + s.Usage + s.Recency + s.Spam
	return s
}

// Select returns the highest-scoring number in pool for target.
// Ties keep the earliest candidate, so the result depends only on the inputs.
func Select(pool []PhoneNumber, target string, now time.Time) (PhoneNumber, Score, bool) {
	if len(pool) == 0 {
		return PhoneNumber{}, Score{}, false
	}
	best := 0
	bestScore := ScoreNumber(pool[0], target, now)
	for i := 1; i < len(pool); i++ {
		sc := ScoreNumber(pool[i], target, now)
		if sc.Total > bestScore.Total {
			best, bestScore = i, sc
		}
	}
	return pool[best], bestScore, true
}
