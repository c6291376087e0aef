// Package recognition turns an input image into recognized text. Optical
// recognition itself happens elsewhere; Sidecar reads its stored output.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// Recognition errors.
var (
	ErrNoSidecar       = errors.New("no recognized text found for image")
	ErrUnsupportedFile = errors.New("unsupported recognized text file")
	ErrEmptyText       = errors.New("recognized text is empty")
)

// Image is one screenshot to recognize. Path is used when Data is empty.
type Image struct {
	Path string
	Data []byte
}

// Recognizer produces text from an image of a module's screen.
type Recognizer interface {
	Recognize(ctx context.Context, img Image, module model.Module) (model.RecognizedText, error)
}

// Sidecar reads text recognized ahead of time. For an image at shot.png it
// looks for shot.png.json, shot.json, shot.png.txt and shot.txt in that
// order. A path that already names a .json or .txt file is read directly.
type Sidecar struct{}

// NewSidecar returns a sidecar reader.
func NewSidecar() *Sidecar { return &Sidecar{} }

// IsTextFile reports whether path is a file the sidecar reads directly.
func IsTextFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".json":
		return true
	default:
		return false
	}
}

// Recognize implements Recognizer.
func (s *Sidecar) Recognize(ctx context.Context, img Image, module model.Module) (model.RecognizedText, error) {
	if err := ctx.Err(); err != nil {
		return model.RecognizedText{}, err
	}

	if len(img.Data) > 0 {
		return Parse(img.Data, formatOf(img.Path))
	}

	path, err := s.Locate(img.Path)
	if err != nil {
		return model.RecognizedText{}, err
	}

	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RecognizedText{}, fmt.Errorf("failed to read recognized text: %w", err)
	}
	slog.Debug("read recognized text", "path", path, "module", module)
	return Parse(data, formatOf(path))
}

// Locate returns the sidecar file holding the text of an image.
func (s *Sidecar) Locate(imagePath string) (string, error) {
	if IsTextFile(imagePath) {
		return imagePath, nil
	}
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	for _, candidate := range []string{
		imagePath + ".json", base + ".json",
		imagePath + ".txt", base + ".txt",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoSidecar, imagePath)
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "txt"
}

// Parse decodes sidecar content: plain lines ("txt") or a
// {"lines": [...], "regions": [...]} document ("json").
func Parse(data []byte, format string) (model.RecognizedText, error) {
	switch format {
	case "txt":
		text := model.TextFromString(strings.TrimRight(string(data), "\r\n"))
		if len(text.Lines) == 1 && strings.TrimSpace(text.Lines[0]) == "" {
			return model.RecognizedText{}, ErrEmptyText
		}
		return text, nil
	case "json":
		var text model.RecognizedText
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&text); err != nil {
			return model.RecognizedText{}, fmt.Errorf("failed to decode recognized text: %w", err)
		}
		if len(text.Lines) == 0 && len(text.Regions) == 0 {
			return model.RecognizedText{}, ErrEmptyText
		}
		return text, nil
	default:
		return model.RecognizedText{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, format)
	}
}
