package services

import (
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxBaseNameLen = 100

// originalBase drops any client-side directory part, including Windows paths.
func originalBase(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "\\", "/")
	s = path.Base(s)
	if s == "." || s == "/" {
		return ""
	}
	return s
}

// splitName splits "photo.JPG" into ("photo", "JPG").
func splitName(name string) (string, string) {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext), strings.TrimPrefix(ext, ".")
}

// extensionOf is the lower-cased extension used for allow-list checks.
func extensionOf(name string) string {
	_, ext := splitName(originalBase(name))
	return strings.ToLower(ext)
}

// sanitizeBaseName keeps [A-Za-z0-9_-], turns everything else into '-',
// collapses runs of '-' and trims them from both ends. Case is preserved.
func sanitizeBaseName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)

	var b strings.Builder
	b.Grow(len(s))
	prevDash := false
	for _, r := range s {
		switch {
		case isASCIIAlnum(r) || r == '_':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > maxBaseNameLen {
		out = strings.TrimRight(out[:maxBaseNameLen], "-")
	}
	return out
}

func sanitizeExt(ext string) string {
	var b strings.Builder
	for _, r := range ext {
		if isASCIIAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func randomBaseName() string {
	return "file-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// resolveFileName builds the stored object name. The extension always comes
// from the original (validated) file name; customName only replaces the base.
func resolveFileName(customName, original string) string {
	base, ext := splitName(originalBase(original))

	if c := originalBase(customName); c != "" {
		cb, ce := splitName(c)
		if ce != "" && strings.EqualFold(ce, ext) {
			c = cb
		}
		base = c
	}

	base = sanitizeBaseName(base)
	if base == "" {
		base = randomBaseName()
	}

	ext = sanitizeExt(ext)
	if ext == "" {
		return base
	}
	return base + "." + ext
}
