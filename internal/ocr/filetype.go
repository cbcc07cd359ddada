package ocr

import (
	"bytes"
	"path/filepath"
	"strings"
)

// FileType classifies an upload for routing through the pipeline.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypePDF   FileType = "pdf"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// ClassifyFile determines the file type from the filename, the declared
// content type and the leading bytes, in that order of preference.
// Magic bytes win over a lying extension for PDFs because browsers often
// upload scans with a generic content type.
func ClassifyFile(filename, contentType string, data []byte) (FileType, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FileTypePDF, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return FileTypePDF, nil
	}
	if imageExtensions[ext] {
		return FileTypeImage, nil
	}

	ct := strings.ToLower(contentType)
	switch {
	case ct == "application/pdf":
		return FileTypePDF, nil
	case strings.HasPrefix(ct, "image/"):
		return FileTypeImage, nil
	}

	return "", ErrUnsupportedInput
}

// IsHEIC reports whether the data looks like an HEIC/HEIF container,
// which needs dedicated decoding before the standard image pipeline.
func IsHEIC(filename string, data []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".heic" || ext == ".heif" {
		return true
	}
	// ISO BMFF: size(4) + "ftyp" + brand
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		brand := string(data[8:12])
		switch brand {
		case "heic", "heix", "hevc", "heim", "heis", "hevm", "hevs", "mif1", "msf1":
			return true
		}
	}
	return false
}
