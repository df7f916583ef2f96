package constants

// MIME types accepted on the extraction surface. Anything else is rejected
// before the pipeline does any work.
const (
	MimeTypeText = "text/plain"
	MimeTypePDF  = "application/pdf"
	MimeTypePNG  = "image/png"
	MimeTypeJPG  = "image/jpg"
	MimeTypeJPEG = "image/jpeg"
	MimeTypeGIF  = "image/gif"
	MimeTypeBMP  = "image/bmp"
	MimeTypeTIFF = "image/tiff"
)

var imageMimeTypes = map[string]struct{}{
	MimeTypePNG:  {},
	MimeTypeJPG:  {},
	MimeTypeJPEG: {},
	MimeTypeGIF:  {},
	MimeTypeBMP:  {},
	MimeTypeTIFF: {},
}

// IsText reports whether the mime type takes the plain-text path.
func IsText(mimeType string) bool { return mimeType == MimeTypeText }

// IsPDF reports whether the mime type takes the page-rendering path.
func IsPDF(mimeType string) bool { return mimeType == MimeTypePDF }

// IsImage reports whether the mime type is one of the accepted image types.
func IsImage(mimeType string) bool {
	_, ok := imageMimeTypes[mimeType]
	return ok
}

// IsSupported reports whether the mime type is handled at all.
func IsSupported(mimeType string) bool {
	return IsText(mimeType) || IsPDF(mimeType) || IsImage(mimeType)
}
