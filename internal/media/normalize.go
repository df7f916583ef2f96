package media

import (
	"encoding/base64"
	"fmt"

	fitz "github.com/gen2brain/go-fitz"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
)

// Normalized is the model-consumable form of a document: plain text,
// renderable images, or both empty sides of the pair.
type Normalized struct {
	Text   string
	Images [][]byte // PNG bytes, one per page for PDFs
}

func (n Normalized) HasImages() bool { return len(n.Images) > 0 }

// Normalize turns a raw document payload into text and/or images. It has no
// network or storage side effects and is deterministic for identical input
// bytes and the fixed render DPI.
func Normalize(doc entity.Document) (Normalized, error) {
	if !constants.IsSupported(doc.MimeType) {
		return Normalized{}, common.InvalidMimeType(doc.MimeType)
	}

	raw, err := base64.StdEncoding.DecodeString(doc.Content)
	if err != nil {
		return Normalized{}, fmt.Errorf("decode document content: %w", err)
	}

	switch {
	case doc.IsText():
		return Normalized{Text: string(raw)}, nil
	case doc.IsImage():
		return Normalized{Images: [][]byte{raw}}, nil
	default:
		images, err := renderPDF(raw)
		if err != nil {
			return Normalized{}, err
		}
		return Normalized{Images: images}, nil
	}
}

// renderPDF rasterizes every page at the fixed DPI. A corrupt or empty PDF
// is an error, never a silently empty result.
func renderPDF(raw []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(raw)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	images := make([][]byte, 0, pages)
	for i := 0; i < pages; i++ {
		png, err := doc.ImagePNG(i, constants.RenderDPI)
		if err != nil {
			return nil, fmt.Errorf("render pdf page %d: %w", i+1, err)
		}
		images = append(images, png)
	}
	return images, nil
}
