package runner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// identityKeys are the object keys accepted in JSON input files, in order
var identityKeys = []string{"username", "Twitter Username", "handle", "identity"}

// ReadIdentities loads identities from path. See ParseIdentities.
func ReadIdentities(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity list: %w", err)
	}
	defer f.Close()
	return ParseIdentities(f)
}

// ParseIdentities accepts either a JSON array (of strings, or of objects
// carrying one of the identity keys) or one identity per line. Blank lines
// and lines starting with # are ignored. Leading @ is stripped and
// duplicates are dropped, keeping the first occurrence.
func ParseIdentities(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity list: %w", err)
	}

	var raw []string
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if raw, err = parseJSON(trimmed); err != nil {
			return nil, err
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read identity list: %w", err)
		}
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimPrefix(strings.TrimSpace(id), "@")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func parseJSON(data []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid identity list: %w", err)
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("identity list entry %d: expected string or object", i)
		}
		if id, ok := identityFrom(obj); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func identityFrom(obj map[string]any) (string, bool) {
	for _, key := range identityKeys {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}
