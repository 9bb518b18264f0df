package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

const (
	openMarker  = "<<<"
	closeMarker = ">>>"
)

// ErrUnterminatedBlock is returned when a <<< marker has no matching >>>.
var ErrUnterminatedBlock = errors.New("unterminated <<< block in template")

var systemBlockPattern = regexp.MustCompile(`(?s)<<<(.*?)>>>`)

// SanitizeTemplate repairs the authoring format of template files. Template
// authors write the system prompt as raw text between <<< and >>> in place of
// a JSON string. Each span is trimmed, encoded as a JSON string literal and
// spliced back, so the result can be decoded as regular JSON. Input without
// markers is returned unchanged.
func SanitizeTemplate(raw []byte) ([]byte, error) {
	if !bytes.Contains(raw, []byte(openMarker)) {
		return raw, nil
	}

	var encodeErr error
	out := systemBlockPattern.ReplaceAllFunc(raw, func(span []byte) []byte {
		inner := bytes.TrimSpace(span[len(openMarker) : len(span)-len(closeMarker)])
		quoted, err := quoteJSON(string(inner))
		if err != nil && encodeErr == nil {
			encodeErr = err
		}
		return quoted
	})
	if encodeErr != nil {
		return nil, fmt.Errorf("failed to encode system block: %w", encodeErr)
	}

	if idx := bytes.Index(out, []byte(openMarker)); idx >= 0 {
		return nil, fmt.Errorf("%w (offset %d)", ErrUnterminatedBlock, idx)
	}
	return out, nil
}

func quoteJSON(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
