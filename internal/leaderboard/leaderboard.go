package leaderboard

type LeaderboardEntry struct {
	UserID      string  `json:"user_id" db:"user_id"`
	Username    string  `json:"username" db:"username"`
	ImageURL    *string `json:"image_url" db:"image_url"`
	KelpPoints  int     `json:"kelp_points" db:"kelp_points"`
	StreakCount int     `json:"streak_count" db:"streak_count"`
	Rank        int     `json:"rank" db:"rank"`
}

type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}
