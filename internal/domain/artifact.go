package domain

const (
	ContentTypePNG = "image/png"
	ContentTypeSVG = "image/svg+xml"
)

// Artifact is a rendered raster or vector document. It is produced per request,
// uploaded or streamed once, then dropped.
type Artifact struct {
	Data        []byte
	ContentType string
	Filename    string
	Width       int
	Height      int
}
