package ai

import (
	"fmt"

	"quizzz-service/internal/domain"
)

// extractJSON returns the first balanced {...} substring of the model reply.
// Models wrap JSON in prose or code fences often enough that decoding the raw
// reply directly is not reliable.
func extractJSON(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", fmt.Errorf("%w: no JSON object in model reply", domain.ErrGenerationFormat)
}
