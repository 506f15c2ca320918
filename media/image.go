package media

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/tool"
)

type generateImageArgs struct {
	Keyword string `json:"keyword" jsonschema:"required" jsonschema_description:"Keyword the image should illustrate"`
}

// GenerateImageResult is the payload returned by the image tool.
type GenerateImageResult struct {
	Keyword string `json:"keyword"`
	File    string `json:"file"`
}

// NewGenerateImageTool returns the generate_image tool. It materializes a
// placeholder PNG per keyword under dir; the pixel color is derived from
// the keyword so distinct keywords yield distinct files.
func NewGenerateImageTool(dir string) *tool.FunctionTool {
	return tool.NewFunctionTool(
		"generate_image",
		"Generate an illustrative image for a keyword and return its file path.",
		tool.MustSchema[generateImageArgs](),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			var in generateImageArgs
			if err := mapstructure.Decode(args, &in); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
			if strings.TrimSpace(in.Keyword) == "" {
				return nil, fmt.Errorf("keyword must not be empty")
			}

			path := filepath.Join(dir, querySlug(in.Keyword)+".png")
			if err := writePlaceholderPNG(path, in.Keyword); err != nil {
				return nil, err
			}

			if err := toolCtx.RecordArtifact(core.Artifact{
				Keyword:  in.Keyword,
				Path:     path,
				MimeType: "image/png",
				Tool:     "generate_image",
			}); err != nil {
				return nil, fmt.Errorf("record artifact: %w", err)
			}
			return GenerateImageResult{Keyword: in.Keyword, File: path}, nil
		},
	)
}

func writePlaceholderPNG(path, keyword string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	id := assetID(keyword)
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	fill := color.RGBA{R: uint8(id), G: uint8(id >> 8), B: uint8(id >> 16), A: 255}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, fill)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}
