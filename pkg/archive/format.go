package archive

import (
	"fmt"
	"strings"
)

// Format is an extraction policy: which archive formats to try on a file.
type Format string

const (
	// FormatAuto tries tar, then zip, then gzip.
	FormatAuto Format = "auto"
	// FormatTar covers plain tar and tar compressed with gzip, bzip2, zstd or lz4.
	FormatTar Format = "tar"
	// FormatZip covers zip archives.
	FormatZip Format = "zip"
	// FormatGzip covers a single gzip-compressed file named *.gz.
	FormatGzip Format = "gzip"
	// FormatNone disables extraction.
	FormatNone Format = "none"
)

// ParseFormat parses an extraction policy. An empty string means auto;
// "null" is accepted as a synonym for none.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "tar":
		return FormatTar, nil
	case "zip":
		return FormatZip, nil
	case "gzip", "gz":
		return FormatGzip, nil
	case "none", "null":
		return FormatNone, nil
	default:
		return "", fmt.Errorf("unknown extract format %q (want auto, tar, zip, gzip or none)", name)
	}
}

// String returns the policy name.
func (f Format) String() string {
	return string(f)
}

// candidates lists the concrete formats tried, in order.
func (f Format) candidates() []Format {
	switch f {
	case FormatAuto, "":
		return []Format{FormatTar, FormatZip, FormatGzip}
	case FormatNone:
		return nil
	default:
		return []Format{f}
	}
}

// Compression is the stream compression applied to a created tar.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// Layout describes the container chosen for a pack path.
type Layout struct {
	Zip         bool
	Compression Compression
}

// LayoutFor picks the archive layout from a pack file name. Unknown
// extensions get a gzip-compressed tar, the pack default.
func LayoutFor(name string) Layout {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return Layout{Zip: true}
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return Layout{Compression: CompressionZstd}
	case strings.HasSuffix(lower, ".tar.lz4"):
		return Layout{Compression: CompressionLZ4}
	case strings.HasSuffix(lower, ".tar"):
		return Layout{Compression: CompressionNone}
	default:
		return Layout{Compression: CompressionGzip}
	}
}
