package storage

import "time"

// Topic is a cached page body keyed by its canonical full name
// (for example "Template:Infobox").
type Topic struct {
	Name    string
	Content string

	CreatedAt time.Time
}

// Image is a cached image record. Filename is the absolute path of the
// downloaded file; the record is only trustworthy while that file exists.
type Image struct {
	Name     string
	URL      string
	Filename string

	CreatedAt time.Time
}

// Stats holds record counts for a store.
type Stats struct {
	Topics int `json:"topics"`
	Images int `json:"images"`
}
