package media

import (
	"errors"
	"strings"
)

// ErrUnknownFileType is returned when neither the MIME type nor the
// extension identifies a supported kind.
var ErrUnknownFileType = errors.New("unknown file type")

type extensionEntry struct {
	mimeType string
	kind     Kind
}

var extensions = map[string]extensionEntry{
	"jpg":  {"image/jpeg", Image},
	"jpeg": {"image/jpeg", Image},
	"png":  {"image/png", Image},
	"gif":  {"image/gif", Image},
	"webp": {"image/webp", Image},
	"bmp":  {"image/bmp", Image},
	"tif":  {"image/tiff", Image},
	"tiff": {"image/tiff", Image},
	"svg":  {"image/svg+xml", Image},
	"heic": {"image/heic", Image},
	"avif": {"image/avif", Image},
	"ico":  {"image/x-icon", Image},

	"mp4":  {"video/mp4", Video},
	"m4v":  {"video/x-m4v", Video},
	"mov":  {"video/quicktime", Video},
	"webm": {"video/webm", Video},
	"mkv":  {"video/x-matroska", Video},
	"avi":  {"video/x-msvideo", Video},
	"wmv":  {"video/x-ms-wmv", Video},
	"flv":  {"video/x-flv", Video},
	"3gp":  {"video/3gpp", Video},
	"mpeg": {"video/mpeg", Video},
	"mpg":  {"video/mpeg", Video},
	"ogv":  {"video/ogg", Video},

	"mp3":  {"audio/mpeg", Audio},
	"wav":  {"audio/wav", Audio},
	"ogg":  {"audio/ogg", Audio},
	"oga":  {"audio/ogg", Audio},
	"opus": {"audio/opus", Audio},
	"flac": {"audio/flac", Audio},
	"aac":  {"audio/aac", Audio},
	"m4a":  {"audio/mp4", Audio},
	"wma":  {"audio/x-ms-wma", Audio},
	"aiff": {"audio/aiff", Audio},
	"aif":  {"audio/aiff", Audio},

	"pdf":  {"application/pdf", Document},
	"doc":  {"application/msword", Document},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", Document},
	"xls":  {"application/vnd.ms-excel", Document},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Document},
	"ppt":  {"application/vnd.ms-powerpoint", Document},
	"pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", Document},
	"odt":  {"application/vnd.oasis.opendocument.text", Document},
	"ods":  {"application/vnd.oasis.opendocument.spreadsheet", Document},
	"odp":  {"application/vnd.oasis.opendocument.presentation", Document},
	"rtf":  {"application/rtf", Document},
	"txt":  {"text/plain", Document},
	"md":   {"text/markdown", Document},
	"csv":  {"text/csv", Document},
	"json": {"application/json", Document},
	"xml":  {"application/xml", Document},
	"html": {"text/html", Document},
	"epub": {"application/epub+zip", Document},

	"zip": {"application/zip", Archive},
	"rar": {"application/vnd.rar", Archive},
	"7z":  {"application/x-7z-compressed", Archive},
	"tar": {"application/x-tar", Archive},
	"gz":  {"application/gzip", Archive},
	"tgz": {"application/gzip", Archive},
	"bz2": {"application/x-bzip2", Archive},
	"xz":  {"application/x-xz", Archive},
	"zst": {"application/zstd", Archive},
}

var documentMIMEs = map[string]bool{
	"application/pdf":      true,
	"application/msword":   true,
	"application/rtf":      true,
	"application/json":     true,
	"application/xml":      true,
	"application/epub+zip": true,

	"application/vnd.ms-excel":                                                  true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.oasis.opendocument.text":                                   true,
	"application/vnd.oasis.opendocument.spreadsheet":                            true,
	"application/vnd.oasis.opendocument.presentation":                           true,
}

var archiveMIMEs = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/vnd.rar":          true,
	"application/x-rar-compressed": true,
	"application/x-7z-compressed":  true,
	"application/x-tar":            true,
	"application/gzip":             true,
	"application/x-gzip":           true,
	"application/x-bzip2":          true,
	"application/x-xz":             true,
	"application/zstd":             true,
}

// documentPrefixes claim MIME families for documents once the exact
// archive set has had its chance.
var documentPrefixes = []string{"application/pdf", "application/msword", "application/vnd.", "text/"}

// MimeForExtension returns the curated MIME type for ext, or "".
func MimeForExtension(ext string) string {
	return extensions[strings.ToLower(strings.TrimPrefix(ext, "."))].mimeType
}

// KindForExtension returns the kind of the curated extension ext.
func KindForExtension(ext string) (Kind, bool) {
	e, ok := extensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return e.kind, ok
}

// ExtensionForMIME returns a canonical extension for mimeType, preferring
// the shortest entry for deterministic output.
func ExtensionForMIME(mimeType string) string {
	best := ""
	for ext, e := range extensions {
		if e.mimeType != mimeType {
			continue
		}
		if best == "" || len(ext) < len(best) || (len(ext) == len(best) && ext < best) {
			best = ext
		}
	}
	return best
}

// Classify maps a descriptor to its kind. The MIME type is consulted first,
// the extension only when the MIME type carries no information.
func Classify(d Descriptor) (Kind, error) {
	mimeType := normalizeMIME(d.MimeType)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return Image, nil
	case strings.HasPrefix(mimeType, "video/"):
		return Video, nil
	case strings.HasPrefix(mimeType, "audio/"):
		return Audio, nil
	}

	if documentMIMEs[mimeType] {
		return Document, nil
	}
	if archiveMIMEs[mimeType] {
		return Archive, nil
	}
	for _, prefix := range documentPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return Document, nil
		}
	}

	if IsGenericMIME(mimeType) {
		if kind, ok := KindForExtension(d.Extension); ok {
			return kind, nil
		}
	}
	return Generic, ErrUnknownFileType
}
