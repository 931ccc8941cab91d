package tagging

import (
	"regexp"
	"slices"
	"strings"
)

// MaxTagLength is the longest user tag accepted
const MaxTagLength = 50

var (
	validTag = regexp.MustCompile(`^[a-z0-9\-_ ]+$`)
	spaces   = regexp.MustCompile(` +`)
)

// TagSet is the full set of tags on a receipt. All is the sorted union of Auto and User.
type TagSet struct {
	All   []string `json:"all"`
	Auto  []string `json:"auto"`
	User  []string `json:"user"`
	Count int      `json:"count"`
}

// ValidateUserTags lower-cases and trims user tags, drops anything empty, longer than
// MaxTagLength or containing characters other than letters, digits, hyphens, underscores and
// spaces, then turns spaces into hyphens. The result is sorted and de-duplicated.
func ValidateUserTags(userTags []string) []string {
	var valid []string
	for _, tag := range userTags {
		tag = strings.TrimSpace(strings.ToLower(tag))
		if tag == "" || len(tag) > MaxTagLength || !validTag.MatchString(tag) {
			continue
		}
		valid = append(valid, spaces.ReplaceAllString(tag, "-"))
	}
	return sortedUnique(valid)
}

// MergeTags combines auto-generated tags with validated user tags
func MergeTags(auto, user []string) TagSet {
	auto = sortedUnique(auto)
	user = ValidateUserTags(user)
	all := sortedUnique(append(slices.Clone(auto), user...))
	return TagSet{
		All:   all,
		Auto:  auto,
		User:  user,
		Count: len(all),
	}
}

func sortedUnique(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag != "" {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
