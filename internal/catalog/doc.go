// Package catalog holds the product listing, the product being viewed and
// the category list.
//
// Search and category are filter state; changing them does not fetch.
// SetPage keeps the filters and refetches. When listing requests overlap,
// only the most recent one is applied.
package catalog
