package wikitext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

// Image display types.
const (
	TypeThumb     = "thumb"
	TypeFrame     = "frame"
	TypeFrameless = "frameless"
)

// ImageFormat is a parsed image link such as
// "File:Logo.png|thumb|left|200px|The logo".
type ImageFormat struct {
	Namespace string `json:"namespace"`
	Filename  string `json:"filename"`

	Type     string `json:"type,omitempty"`
	Border   bool   `json:"border,omitempty"`
	Location string `json:"location,omitempty"`
	Upright  bool   `json:"upright,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	Link    string `json:"link,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// SetDefaultThumbWidth gives thumbnails without an explicit width the
// default width so a scaled copy is fetched.
func (f *ImageFormat) SetDefaultThumbWidth(width int) {
	if f.Width > 0 || width <= 0 {
		return
	}
	if f.Type == TypeThumb || f.Type == TypeFrameless {
		f.Width = width
	}
}

var sizePattern = regexp.MustCompile(`^(\d*)(?:x(\d+))?\s*px$`)

// ParseImageSpec parses the inside of an image link. namespace is the image
// namespace the renderer matched ("File", "Image", or a localized name); a
// matching prefix on the first segment is stripped.
func ParseImageSpec(raw, namespace string) ImageFormat {
	parts := strings.Split(raw, "|")
	f := ImageFormat{
		Namespace: namespace,
		Filename:  imageFilename(parts[0], namespace),
	}

	for _, part := range parts[1:] {
		opt := strings.TrimSpace(part)
		lower := strings.ToLower(opt)

		switch {
		case lower == "thumb" || lower == "thumbnail":
			f.Type = TypeThumb
		case lower == "frame" || lower == "framed":
			f.Type = TypeFrame
		case lower == "frameless":
			f.Type = TypeFrameless
		case lower == "border":
			f.Border = true
		case lower == "left" || lower == "right" || lower == "none":
			f.Location = lower
		case lower == "center" || lower == "centre":
			f.Location = "center"
		case lower == "upright" || strings.HasPrefix(lower, "upright="):
			f.Upright = true
		case strings.HasPrefix(lower, "link="):
			f.Link = strings.TrimSpace(opt[len("link="):])
		case strings.HasPrefix(lower, "alt="):
			f.Alt = strings.TrimSpace(opt[len("alt="):])
		default:
			if m := sizePattern.FindStringSubmatch(lower); m != nil && (m[1] != "" || m[2] != "") {
				f.Width, _ = strconv.Atoi(m[1])
				f.Height, _ = strconv.Atoi(m[2])
				continue
			}
			if opt != "" {
				f.Caption = opt
			}
		}
	}

	return f
}

func imageFilename(first, namespace string) string {
	name := strings.TrimSpace(first)
	if i := strings.IndexByte(name, ':'); i > 0 {
		prefix := strings.TrimSpace(name[:i])
		_, known := wikiname.CanonicalNamespace(prefix)
		if known || strings.EqualFold(prefix, namespace) {
			name = name[i+1:]
		}
	}

	parsed := wikiname.Parse(name, "")
	return parsed.Title
}
