package scripting

// Statistics tracks session-level autobet results.
type Statistics struct {
	Bets    int     `json:"bets"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Wagered float64 `json:"wagered"`
	Profit  float64 `json:"profit"`

	// Positive = win streak, negative = lose streak.
	CurrentStreak int `json:"currentStreak"`

	StartBalance float64 `json:"startBalance"`
	Balance      float64 `json:"balance"`
}

// record applies one finished round to the counters. profit is the round's
// balance delta (payout minus stake, or minus stake on a loss).
func (st *Statistics) record(stake, profit, balance float64, win bool) {
	st.Bets++
	st.Wagered += stake
	st.Profit += profit
	st.Balance = balance

	if win {
		st.Wins++
		if st.CurrentStreak < 0 {
			st.CurrentStreak = 0
		}
		st.CurrentStreak++
	} else {
		st.Losses++
		if st.CurrentStreak > 0 {
			st.CurrentStreak = 0
		}
		st.CurrentStreak--
	}
}
