package content

type OwnerKind string

const (
	OwnerArticle  OwnerKind = "article"
	OwnerCategory OwnerKind = "category"
	OwnerSeries   OwnerKind = "series"
	OwnerAuthor   OwnerKind = "author"
)

type MediaRole string

const (
	RoleFeaturedImage MediaRole = "featured_image"
	RoleGallery       MediaRole = "gallery"
)

// Owner identifies the single entity a media file is attached to.
type Owner struct {
	Kind OwnerKind
	ID   int64
}

type Media struct {
	Path     string
	MIMEType string
	Alt      string
	Caption  string
	Owner    Owner
	Role     MediaRole
}

// IsImage reports whether the MIME type is an image. An empty MIME type is
// treated as an image since the CMS only omits it for legacy uploads.
func (m *Media) IsImage() bool {
	if m.MIMEType == "" {
		return true
	}
	return len(m.MIMEType) > 6 && m.MIMEType[:6] == "image/"
}
