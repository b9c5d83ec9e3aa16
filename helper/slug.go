package helper

import (
	"fmt"
	"restaurant_manager/model"

	"github.com/gosimple/slug"
)

type MenuSection struct {
	Slug     string           `json:"slug"`
	Category string           `json:"category"`
	Items    []model.MenuItem `json:"items"`
}

// GroupMenuByCategory keeps the catalog order. Two category names that slugify to the
// same value get numbered slugs.
func GroupMenuByCategory(items []model.MenuItem) []MenuSection {
	sections := []MenuSection{}
	byCategory := map[string]int{}
	taken := map[string]bool{}

	for _, item := range items {
		i, ok := byCategory[item.Category]
		if !ok {
			sections = append(sections, MenuSection{
				Slug:     uniqueSlug(item.Category, taken),
				Category: item.Category,
			})
			i = len(sections) - 1
			byCategory[item.Category] = i
		}
		sections[i].Items = append(sections[i].Items, item)
	}
	return sections
}

func uniqueSlug(name string, taken map[string]bool) string {
	base := slug.Make(name)
	if base == "" {
		base = "khac"
	}
	result := base
	for i := 1; taken[result]; i++ {
		result = fmt.Sprintf("%s-%d", base, i)
	}
	taken[result] = true
	return result
}
