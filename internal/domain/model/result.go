package model

// ResultArchive is the zip payload returned by the vendor.
type ResultArchive struct {
	Data      []byte
	AssetID   string
	RequestID string // empty when the request completed synchronously
	Polled    bool
	Attempts  int
}

// ExtractedVideo is the first video entry found in a ResultArchive.
type ExtractedVideo struct {
	Name    string
	Data    []byte
	Entries []string // full listing, archive order
}
