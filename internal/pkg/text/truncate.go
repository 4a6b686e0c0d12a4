package text

// Truncate caps s at max bytes, appending an ellipsis marker when it cut
// anything. Non-positive max leaves s untouched.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
