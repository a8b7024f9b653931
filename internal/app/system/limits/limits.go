// internal/app/system/limits/limits.go
package limits

// Request body size limits for form posts.
const (
	// MaxFormSize bounds url-encoded form posts (sign-in, profile, settings).
	MaxFormSize = 64 << 10 // 64 KB

	// MaxListingFormSize bounds the multipart new-listing post, image included.
	MaxListingFormSize = 12 << 20 // 12 MB

	// MaxImageSize is the largest listing image accepted for upload.
	MaxImageSize = 10 << 20 // 10 MB

	// MaxTitleLen and MaxDescriptionLen bound listing text fields, in runes.
	MaxTitleLen       = 120
	MaxDescriptionLen = 5000
)
