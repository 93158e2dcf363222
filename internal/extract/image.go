package extract

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"

	_ "image/gif"  // registers GIF decoding
	_ "image/jpeg" // registers JPEG decoding
	_ "image/png"  // registers PNG decoding
)

// imageExtractor produces technical metadata for images. OCR and object
// detection are heavyweight external services; until one is wired in, the
// detected-objects list carries an explicit stub marker so downstream
// consumers can tell "nothing detected" from "detection not attempted".
type imageExtractor struct{}

var _ Extractor = (*imageExtractor)(nil)

// NewImageExtractor creates the image extractor
func NewImageExtractor() Extractor {
	return &imageExtractor{}
}

const detectionStub = "object_detection_model_not_loaded"

// Extract decodes the image header and returns dimensions and format
func (e *imageExtractor) Extract(_ context.Context, path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Mimetype: "image", Path: path, Err: err}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, &Error{Mimetype: "image", Path: path, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	return &Payload{
		Category:        CategoryImage,
		DetectedObjects: []string{detectionStub},
		Metadata: map[string]string{
			"format": format,
			"width":  strconv.Itoa(cfg.Width),
			"height": strconv.Itoa(cfg.Height),
		},
	}, nil
}
