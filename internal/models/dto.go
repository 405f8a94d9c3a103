package models

// CourseAnalytics summarises enrollments for one course
type CourseAnalytics struct {
	CourseID             string  `json:"courseId"`
	TotalEnrollments     int64   `json:"totalEnrollments"`
	ActiveEnrollments    int64   `json:"activeEnrollments"`
	CompletedEnrollments int64   `json:"completedEnrollments"`
	DroppedEnrollments   int64   `json:"droppedEnrollments"`
	CompletionRate       float64 `json:"completionRate"`
	AverageProgress      float64 `json:"averageProgress"`
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"userId"`
	FullName        string  `json:"fullName"`
	ProfileImageURL *string `json:"profileImageUrl"`
	XPPoints        int     `json:"xpPoints"`
	CurrentStreak   int     `json:"currentStreak"`
}

// NewLeaderboard ranks users in the order given, starting at 1
func NewLeaderboard(users []*User) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:            i + 1,
			UserID:          u.ID,
			FullName:        u.DisplayName(),
			ProfileImageURL: u.ProfileImageURL,
			XPPoints:        u.XPPoints,
			CurrentStreak:   u.CurrentStreak,
		})
	}
	return entries
}
