package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// textScanPrompt is the shared prompt used by all LLM providers for transcribing images
const textScanPrompt = `You are an OCR engine. Transcribe every piece of text visible in the image, exactly as printed, without correcting or translating it.

Group the text into blocks (visually separate regions such as a header, a field group or a caption) and split each block into lines, both in natural reading order (top to bottom, left to right).

Return ONLY valid JSON in this exact format:
{
  "blocks": [
    {"lines": [{"text": "first line of the first block"}, {"text": "second line"}]}
  ]
}

Important:
- Preserve letters, digits and punctuation as they appear
- If there is no text, return {"blocks": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// parseTextJSON parses the JSON transcription returned by an LLM provider
func parseTextJSON(text string) (*Text, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data Text
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return Compact(&data), nil
}

// Compact trims line text and drops empty lines and blocks
func Compact(text *Text) *Text {
	out := &Text{Blocks: make([]Block, 0, len(text.Blocks))}
	for _, block := range text.Blocks {
		lines := make([]Line, 0, len(block.Lines))
		for _, line := range block.Lines {
			trimmed := strings.TrimSpace(line.Text)
			if trimmed == "" {
				continue
			}
			lines = append(lines, Line{Text: trimmed})
		}
		if len(lines) > 0 {
			out.Blocks = append(out.Blocks, Block{Lines: lines})
		}
	}
	return out
}

// BlockFromText splits raw multi-line text into a block
func BlockFromText(raw string) Block {
	var block Block
	for _, line := range strings.Split(raw, "\n") {
		block.Lines = append(block.Lines, Line{Text: line})
	}
	return block
}
