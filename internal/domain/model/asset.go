package model

// Asset is a vendor-side stored video referenced by id in later calls.
// It is owned by the request that uploaded it.
type Asset struct {
	ID          string // canonical lowercase UUID
	UploadURL   string
	ContentType string
	Description string
}

// Uploaded reports whether the asset carries a vendor id.
func (a Asset) Uploaded() bool { return a.ID != "" }
