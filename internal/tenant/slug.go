package tenant

import (
	"fmt"

	"github.com/gosimple/slug"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
)

// Slugify lowercases s and collapses every run of other characters into a
// single hyphen.
func Slugify(s string) string {
	return slug.Make(s)
}

// UniqueSlug returns base if it is free, otherwise the first free
// base-1, base-2, ...
func UniqueSlug(base string, taken func(string) bool) string {
	candidate := base
	for i := 1; taken(candidate); i++ {
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return candidate
}

// NextID derives a free tenant id from name. When name has no usable
// characters the id falls back to "<fallbackPrefix>-<random>".
func NextID(db *model.Database, name, fallbackPrefix string) string {
	base := Slugify(name)
	if base == "" {
		base = fallbackPrefix + "-" + store.RandomSuffix(6)
	}
	return UniqueSlug(base, db.HasTenant)
}
