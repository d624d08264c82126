package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind groups detected types by how the PDF operations treat them.
type Kind int

const (
	Unsupported Kind = iota
	PDF
	// JPEG and PNG can be embedded into a PDF as-is.
	JPEG
	PNG
	// RasterImage is any other image format that must be re-encoded first.
	RasterImage
)

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	Description string
}

// IsImage reports whether the file is any image we can place on a page.
func (i *FileTypeInfo) IsImage() bool {
	return i.Kind == JPEG || i.Kind == PNG || i.Kind == RasterImage
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename
func (d *Detector) Detect(filePath string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	d.classify(info)

	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// classify maps the MIME type onto a Kind
func (d *Detector) classify(info *FileTypeInfo) {
	mimeType := info.MIMEType
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	switch mimeType {
	case "application/pdf":
		info.Kind = PDF
		info.Description = "PDF document"
	case "image/jpeg":
		info.Kind = JPEG
		info.Description = "JPEG image"
	case "image/png":
		info.Kind = PNG
		info.Description = "PNG image"
	case "image/gif", "image/bmp", "image/x-ms-bmp", "image/tiff", "image/webp":
		info.Kind = RasterImage
		info.Description = "Raster image"
	default:
		info.Kind = Unsupported
		info.Description = fmt.Sprintf("Unsupported file type: %s", mimeType)
	}
}
