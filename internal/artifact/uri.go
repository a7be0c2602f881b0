package artifact

import (
	"net/url"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Combine resolves uri against uriBase. Absolute URIs and absolute paths are
// returned unchanged.
func Combine(uriBase, uri string) string {
	if uriBase == "" || isAbsolute(uri) {
		return uri
	}
	if uri == "" {
		return uriBase
	}
	if !hasScheme(uriBase) {
		return path.Join(strings.ReplaceAll(uriBase, `\`, "/"), uri)
	}
	base := uriBase
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	bu, err := url.Parse(base)
	if err != nil {
		return base + uri
	}
	ru, err := url.Parse(uri)
	if err != nil {
		return base + uri
	}
	return bu.ResolveReference(ru).String()
}

func isAbsolute(uri string) bool {
	if uri == "" {
		return false
	}
	if hasScheme(uri) || strings.HasPrefix(uri, "/") || strings.HasPrefix(uri, `\\`) {
		return true
	}
	return hasDriveLetter(uri)
}

func hasScheme(uri string) bool {
	i := strings.IndexByte(uri, ':')
	// одна буква до ':' это диск, а не схема
	if i < 2 {
		return false
	}
	for j, c := range uri[:i] {
		letter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
		if j == 0 && !letter {
			return false
		}
		if !letter && !(c >= '0' && c <= '9') && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' && (p[0] >= 'a' && p[0] <= 'z' || p[0] >= 'A' && p[0] <= 'Z')
}

// CanonicalURI lower-cases the scheme and a Windows drive letter and cleans
// the path, so that spellings of one file compare equal.
func CanonicalURI(uri string) string {
	if uri == "" {
		return ""
	}
	if !hasScheme(uri) {
		p := strings.ReplaceAll(uri, `\`, "/")
		if hasDriveLetter(p) {
			p = strings.ToLower(p[:1]) + p[1:]
		}
		return path.Clean(p)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	u.Scheme = strings.ToLower(u.Scheme)
	p := u.Path
	// file:///C:/x -> /c:/x
	if len(p) >= 3 && p[0] == '/' && hasDriveLetter(p[1:]) {
		p = "/" + strings.ToLower(p[1:2]) + p[2:]
	}
	if p != "" {
		p = path.Clean(p)
	}
	u.Path = p
	u.RawPath = ""
	return u.String()
}

// FoldURI is CanonicalURI followed by full Unicode case folding.
func FoldURI(uri string) string {
	return folder.String(CanonicalURI(uri))
}

// FileURI converts a local path to a file URI.
func FileURI(p string) string {
	abs, err := filepath.Abs(p)
	if err == nil {
		p = abs
	}
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// LocalPath converts a file URI or a plain path into a local path.
// ok is false for URIs with other schemes.
func LocalPath(uri string) (p string, ok bool) {
	if uri == "" {
		return "", false
	}
	if !hasScheme(uri) {
		if unescaped, err := url.PathUnescape(uri); err == nil {
			uri = unescaped
		}
		return filepath.FromSlash(uri), true
	}
	u, err := url.Parse(uri)
	if err != nil || !strings.EqualFold(u.Scheme, "file") {
		return "", false
	}
	p = u.Path
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && hasDriveLetter(p[1:]) {
		p = p[1:]
	}
	return filepath.FromSlash(p), true
}
