// Package download turns an encoded recording into a saved file the way a
// page would: mint an object URL, click a hidden link, release the URL.
package download

import (
	"strings"
	"time"
)

// Locale holds the date and time layouts used in download filenames.
type Locale struct {
	DateLayout string
	TimeLayout string
}

// EnUS formats dates as 1/2/2006 and times as 3:04:05 PM.
var EnUS = Locale{DateLayout: "1/2/2006", TimeLayout: "3:04:05 PM"}

// Filename builds video_<date>_<time>.<ext> for t. The extension follows the
// MIME subtype and is mp4 unless mimeType names another video container.
// Names are only unique to the second.
func Filename(t time.Time, loc Locale, mimeType string) string {
	return "video_" + t.Format(loc.DateLayout) + "_" + t.Format(loc.TimeLayout) + "." + extension(mimeType)
}

func extension(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "video/webm":
		return "webm"
	case "video/x-matroska":
		return "mkv"
	default:
		return "mp4"
	}
}

// SafeName replaces characters that cannot appear in a file name on common
// filesystems (path separators, ':' and control characters) with '_'.
func SafeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r == ':', r < 0x20:
			return '_'
		}
		return r
	}, name)
}
