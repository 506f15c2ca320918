package media

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/tool"
)

type generateAudioArgs struct {
	Text string `json:"text" jsonschema:"required" jsonschema_description:"Narration text to synthesize"`
	Name string `json:"name" jsonschema_description:"Optional base name for the audio file"`
}

// GenerateAudioResult is the payload returned by the audio tool.
type GenerateAudioResult struct {
	File       string `json:"file"`
	DurationMs int    `json:"duration_ms"`
}

// Rough narration pacing used to size the placeholder clip.
const msPerWord = 400

// NewGenerateAudioTool returns the generate_audio tool. It writes a silent
// placeholder WAV under dir, sized to the estimated narration length of the
// text.
func NewGenerateAudioTool(dir string) *tool.FunctionTool {
	return tool.NewFunctionTool(
		"generate_audio",
		"Synthesize narration audio for a piece of text and return its file path.",
		tool.MustSchema[generateAudioArgs](),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			var in generateAudioArgs
			if err := mapstructure.Decode(args, &in); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
			if strings.TrimSpace(in.Text) == "" {
				return nil, fmt.Errorf("text must not be empty")
			}

			name := in.Name
			if name == "" {
				name = fmt.Sprintf("narration-%d", assetID(in.Text))
			}
			path := filepath.Join(dir, querySlug(name)+".wav")

			durationMs := len(strings.Fields(in.Text)) * msPerWord
			if err := writeSilentWAV(path, durationMs); err != nil {
				return nil, err
			}

			if err := toolCtx.RecordArtifact(core.Artifact{
				Keyword:  name,
				Path:     path,
				MimeType: "audio/wav",
				Tool:     "generate_audio",
			}); err != nil {
				return nil, fmt.Errorf("record artifact: %w", err)
			}
			return GenerateAudioResult{File: path, DurationMs: durationMs}, nil
		},
	)
}

// writeSilentWAV emits a minimal 8kHz mono 16-bit PCM file of silence.
func writeSilentWAV(path string, durationMs int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	const sampleRate = 8000
	samples := sampleRate * durationMs / 1000
	dataSize := samples * 2

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVEfmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)                // PCM chunk size
	buf = binary.LittleEndian.AppendUint16(buf, 1)                 // PCM format
	buf = binary.LittleEndian.AppendUint16(buf, 1)                 // mono
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)        // sample rate
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*2)      // byte rate
	buf = binary.LittleEndian.AppendUint16(buf, 2)                 // block align
	buf = binary.LittleEndian.AppendUint16(buf, 16)                // bits per sample
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
