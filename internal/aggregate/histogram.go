package aggregate

import (
	"sort"

	"chanfeed/internal/storage"
)

// Histogram counts feed videos per category. A video with several
// categories counts once in each of them.
type Histogram map[string]int

// Bucket is one histogram entry.
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewHistogram counts videos under every category they carry.
func NewHistogram(videos []storage.Video) Histogram {
	h := make(Histogram)
	for _, v := range videos {
		for _, name := range v.Categories {
			h[name]++
		}
	}
	return h
}

// Total returns the number of category assignments. It exceeds the video
// count when videos carry more than one category.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Sorted returns the buckets by count descending, then name ascending.
func (h Histogram) Sorted() []Bucket {
	out := make([]Bucket, 0, len(h))
	for name, count := range h {
		out = append(out, Bucket{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
