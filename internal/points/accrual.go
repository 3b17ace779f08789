package points

// ForWatchSeconds converts watch time into points. Partial intervals do not
// count; watch time shorter than one interval earns nothing.
func ForWatchSeconds(watchSeconds, secondsPerPoint int64) int64 {
	if secondsPerPoint <= 0 || watchSeconds <= 0 {
		return 0
	}
	return watchSeconds / secondsPerPoint
}
