package tagging

import (
	"cmp"
	"slices"
)

// MostUsedLimit is how many tags Statistics.MostUsed reports
const MostUsedLimit = 10

// TagCount is a tag and the number of receipts carrying it
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Statistics summarises tag usage across receipts
type Statistics struct {
	TagCounts       map[string]int `json:"tag_counts"`
	AutoCounts      map[string]int `json:"auto_counts"`
	UserCounts      map[string]int `json:"user_counts"`
	MostUsed        []TagCount     `json:"most_used"`
	TotalUniqueTags int            `json:"total_unique_tags"`
}

// ComputeStatistics counts tag usage over a set of receipts' tags. MostUsed is ordered by
// count, then alphabetically.
func ComputeStatistics(sets []TagSet) Statistics {
	stats := Statistics{
		TagCounts:  make(map[string]int),
		AutoCounts: make(map[string]int),
		UserCounts: make(map[string]int),
	}

	for _, set := range sets {
		for _, tag := range set.All {
			stats.TagCounts[tag]++
		}
		for _, tag := range set.Auto {
			stats.AutoCounts[tag]++
		}
		for _, tag := range set.User {
			stats.UserCounts[tag]++
		}
	}

	stats.MostUsed = make([]TagCount, 0, len(stats.TagCounts))
	for tag, count := range stats.TagCounts {
		stats.MostUsed = append(stats.MostUsed, TagCount{Tag: tag, Count: count})
	}
	slices.SortFunc(stats.MostUsed, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	if len(stats.MostUsed) > MostUsedLimit {
		stats.MostUsed = stats.MostUsed[:MostUsedLimit]
	}
	stats.TotalUniqueTags = len(stats.TagCounts)
	return stats
}
