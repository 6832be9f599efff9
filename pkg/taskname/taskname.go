package taskname

const (
	// Kajabi webhook tasks
	KajabiReconcile = "kajabi:reconcile"

	// Leaderboard tasks
	LeaderboardRefresh = "leaderboard:refresh"
)
