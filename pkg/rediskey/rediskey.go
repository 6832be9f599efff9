package rediskey

import "fmt"

const (
	LeaderboardPrefix = "leaderboard"
	UserPointsPrefix  = "points:user"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildLeaderboardKey returns "leaderboard:{size}"
func BuildLeaderboardKey(size int) string {
	return NamespaceKey(LeaderboardPrefix, fmt.Sprintf("top:%d", size))
}

// BuildUserPointsKey returns "points:user:{userID}"
func BuildUserPointsKey(userID string) string {
	return NamespaceKey(UserPointsPrefix, userID)
}
