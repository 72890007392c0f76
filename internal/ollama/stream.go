package ollama

import (
	"bytes"
	"encoding/json"
)

// decodeLine decodes a single line of the daemon's NDJSON generation stream.
// Blank or malformed lines are reported as not-ok and skipped by the caller;
// the daemon may emit heartbeat or metadata-only lines and those must not
// fail the stream. A decoded event with an empty Response field is still ok:
// the final done marker usually carries no text.
func decodeLine(line []byte) (GenerateResponse, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return GenerateResponse{}, false
	}
	var ev GenerateResponse
	if err := json.Unmarshal(line, &ev); err != nil {
		return GenerateResponse{}, false
	}
	return ev, true
}
