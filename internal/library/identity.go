package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// ValidCategory reports whether name can be used as a category directory.
func ValidCategory(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return len(name) <= 128
}

// AssetID derives the stable id of a file from its category and its path
// relative to the videos root. The hash suffix keeps ids unique when two
// files slug to the same name.
func AssetID(category, relPath string) string {
	base := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	sum := xxhash.Sum64String(filepath.ToSlash(relPath))
	return fmt.Sprintf("%s-%s-%08x", slug(category), slug(base), uint32(sum))
}

func slug(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))

	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "video"
	}
	if len(out) > 64 {
		out = strings.TrimSuffix(out[:64], "-")
	}
	return out
}

var (
	bracketed   = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	separators  = strings.NewReplacer("_", " ", ".", " ", "-", " ")
	multiSpaces = regexp.MustCompile(`\s+`)
)

// DeriveTitle turns a file name into a display title.
func DeriveTitle(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	title := bracketed.ReplaceAllString(base, " ")
	title = separators.Replace(title)
	title = multiSpaces.ReplaceAllString(title, " ")
	title = strings.TrimFunc(title, unicode.IsSpace)
	title = norm.NFC.String(title)

	if title == "" {
		return norm.NFC.String(base)
	}
	return title
}

// DeriveTags returns the category, the extension and the year added.
func DeriveTags(category, fileName string, dateAdded time.Time) []string {
	candidates := []string{
		category,
		strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."),
	}
	if !dateAdded.IsZero() {
		candidates = append(candidates, fmt.Sprintf("%04d", dateAdded.Year()))
	}

	tags := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, t := range candidates {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func resolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}
