// Package media identifies source files: absolute path, sniffed mime type and
// the mime category that selects filters and processing adapters.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Categories returned by Category.
const (
	CategoryImage    = "image"
	CategoryVideo    = "video"
	CategoryAudio    = "audio"
	CategoryText     = "text"
	CategoryDocument = "document"
	CategoryGeneric  = "generic"
)

const sniffLen = 512

// File identifies a source file. It is a value: re-run Open when the
// underlying path changes.
type File struct {
	Path     string
	MimeType string
	Category string
}

// Name returns the file name including its extension.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Ext returns the extension without the leading dot.
func (f File) Ext() string {
	return strings.TrimPrefix(filepath.Ext(f.Path), ".")
}

// BaseName returns the file name without its extension.
func (f File) BaseName() string {
	name := f.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Detector reports the mime type of the file at path.
type Detector interface {
	Detect(path string) (string, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(path string) (string, error)

// Detect calls f(path).
func (f DetectorFunc) Detect(path string) (string, error) {
	return f(path)
}

// Sniff detects by content and falls back to the extension when the content
// is not conclusive.
var Sniff Detector = DetectorFunc(sniff)

// Open resolves path to an absolute path and detects its mime type and
// category with d. A nil d uses Sniff.
func Open(path string, d Detector) (File, error) {
	if d == nil {
		d = Sniff
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", abs)
	}

	mimeType, err := d.Detect(abs)
	if err != nil {
		return File{}, fmt.Errorf("detect %s: %w", abs, err)
	}
	if mimeType == "" {
		return File{}, fmt.Errorf("detect %s: empty mime type", abs)
	}

	return File{
		Path:     abs,
		MimeType: mimeType,
		Category: Category(mimeType),
	}, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	detected := stripParams(http.DetectContentType(buf[:n]))
	if detected != "application/octet-stream" && detected != "text/plain" {
		return detected, nil
	}
	if byExt := TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt, nil
	}
	return detected, nil
}

// extensionTypes covers formats the stdlib table leaves to the host's
// mime.types files.
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".pdf":  "application/pdf",
	".ps":   "application/postscript",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".odt":  "application/vnd.oasis.opendocument.text",
	".rtf":  "application/rtf",
	".txt":  "text/plain",
	".css":  "text/css",
	".html": "text/html",
}

// TypeByExtension returns the mime type for ext (with or without the dot),
// or "" when unknown.
func TypeByExtension(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return stripParams(mime.TypeByExtension(ext))
}

// preferredExtensions pins the extension for types with several candidates.
var preferredExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/tiff":      "tif",
	"video/quicktime": "mov",
	"audio/mpeg":      "mp3",
	"text/plain":      "txt",
	"text/html":       "html",
}

// ExtensionByType returns the extension (without dot) used for files of
// mimeType, or "" when none is known.
func ExtensionByType(mimeType string) string {
	mimeType = strings.ToLower(stripParams(mimeType))
	if ext, ok := preferredExtensions[mimeType]; ok {
		return ext
	}
	for ext, t := range extensionTypes {
		if t == mimeType && !isAlias(ext) {
			return strings.TrimPrefix(ext, ".")
		}
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}

// isAlias reports extensions that share a type with a canonical one.
func isAlias(ext string) bool {
	switch ext {
	case ".jpeg", ".tiff", ".m4v":
		return true
	}
	return false
}

// Category maps a mime type to the category used to select filters and
// adapters: image/* is "image", PDFs and office formats are "document".
func Category(mimeType string) string {
	mimeType = strings.ToLower(stripParams(mimeType))
	major, minor, _ := strings.Cut(mimeType, "/")
	switch major {
	case "image":
		return CategoryImage
	case "video":
		return CategoryVideo
	case "audio":
		return CategoryAudio
	case "text":
		return CategoryText
	case "application":
		switch {
		case minor == "pdf", minor == "postscript", minor == "msword", minor == "rtf",
			strings.HasPrefix(minor, "vnd.openxmlformats-officedocument."),
			strings.HasPrefix(minor, "vnd.oasis.opendocument."),
			strings.HasPrefix(minor, "vnd.ms-"):
			return CategoryDocument
		}
	}
	return CategoryGeneric
}

func stripParams(mimeType string) string {
	t, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(t)
}
