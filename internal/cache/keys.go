package cache

import "fmt"

// Dashboard cache keys are namespaced per user so a write can drop
// everything the user might see without touching other users' entries.

// UserPrefix is the key prefix shared by all cached views of one user.
func UserPrefix(userID int64) string {
	return fmt.Sprintf("u%d:", userID)
}

// SummaryKey keys a period summary for a user.
func SummaryKey(userID int64, year, month int) string {
	return fmt.Sprintf("%ssummary:%04d-%02d", UserPrefix(userID), year, month)
}

// GraphsKey keys the dashboard graph payload for a user.
func GraphsKey(userID int64, year, month int) string {
	return fmt.Sprintf("%sgraphs:%04d-%02d", UserPrefix(userID), year, month)
}

// ReportKey keys a past-period report for a user.
func ReportKey(userID int64, year, month int) string {
	return fmt.Sprintf("%sreport:%04d-%02d", UserPrefix(userID), year, month)
}
