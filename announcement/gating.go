package announcement

// IsActiveAt reports whether a announces anything at blockHeight, i.e.
// whether the sub-indexer should keep it rather than drop it (spec.md §4.4,
// "Drops announcements whose required minimum height exceeds the current
// block height").
func IsActiveAt(a Announcement, blockHeight uint32) bool {
	return a.MinHeight() <= blockHeight
}
