package store

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultExtension = ".bin"

// Extension picks a file extension for a payload. The reported media type is
// authoritative; the bytes are only sniffed when the service reported none.
// It also returns the normalised media type.
func Extension(mediaType string, data []byte) (string, string) {
	mediaType = normalize(mediaType)
	if mediaType == "" {
		detected := mimetype.Detect(data)
		return extensionOrDefault(detected.Extension()), normalize(detected.String())
	}
	if m := mimetype.Lookup(mediaType); m != nil {
		return extensionOrDefault(m.Extension()), mediaType
	}
	return DefaultExtension, mediaType
}

func normalize(mediaType string) string {
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func extensionOrDefault(ext string) string {
	if ext == "" {
		return DefaultExtension
	}
	return ext
}
