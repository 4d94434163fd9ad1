// Package pagination splits ordered listings into fixed-size, 1-indexed pages.
package pagination

import (
	"strconv"
	"strings"
)

// PageSize is the number of posts shown per page.
const PageSize = 10

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items              []T   `json:"items"`
	Number             int   `json:"number"`
	NumPages           int   `json:"num_pages"`
	Count              int64 `json:"count"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     int   `json:"next_page_number,omitempty"`
	PreviousPageNumber int   `json:"previous_page_number,omitempty"`
}

// NumPages returns the page count for count items; an empty listing still has one page.
func NumPages(count int64, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if count <= 0 {
		return 1
	}
	return int((count + int64(size) - 1) / int64(size))
}

// Resolve turns the raw "page" query value into a valid page number.
// A value that is not an integer resolves to the first page; an integer
// outside [1, numPages] resolves to the last page.
func Resolve(raw string, count int64, size int) int {
	numPages := NumPages(count, size)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	if n < 1 || n > numPages {
		return numPages
	}
	return n
}

// Offset is the index of the first item on page number.
func Offset(number, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if number < 1 {
		number = 1
	}
	return (number - 1) * size
}

// New assembles a page from items already cut for page number.
func New[T any](items []T, number int, count int64, size int) Page[T] {
	numPages := NumPages(count, size)
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:       items,
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if p.HasNext {
		p.NextPageNumber = number + 1
	}
	if p.HasPrevious {
		p.PreviousPageNumber = number - 1
	}
	return p
}

// Slice cuts the requested page out of a fully materialized listing.
func Slice[T any](all []T, raw string, size int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	count := int64(len(all))
	number := Resolve(raw, count, size)
	start := Offset(number, size)
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	return New(items, number, count, size)
}
