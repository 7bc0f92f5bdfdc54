package jsonutil

import (
	"strings"
)

const codeFence = "```"

// ExtractJSON pulls the first JSON document out of free-form model output.
// Fenced blocks win over bare text; otherwise whichever top-level document
// starts first, array or object, wins.
func ExtractJSON(raw string) (string, bool) {
	out, _, ok := extract(raw)
	return out, ok
}

// ExtractObject pulls the first JSON object, ignoring arrays, for callers
// whose contract is a single top-level object.
func ExtractObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, _, ok := extractFromFence(raw); ok {
		if obj, _, ok := extractJSONObject(block); ok {
			return obj, true
		}
	}
	obj, _, ok := extractJSONObject(raw)
	return obj, ok
}

// ExtractArray pulls the first JSON array, ignoring objects.
func ExtractArray(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, _, ok := extractFromFence(raw); ok {
		if arr, _, ok := extractJSONArray(block); ok {
			return arr, true
		}
	}
	arr, _, ok := extractJSONArray(raw)
	return arr, ok
}

func extract(raw string) (string, int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", -1, false
	}
	if block, offset, ok := extractFromFence(raw); ok {
		if doc, rel, ok := firstDocument(block); ok {
			return doc, offset + rel, true
		}
	}
	return firstDocument(raw)
}

// firstDocument returns whichever balanced document starts earliest in raw.
func firstDocument(raw string) (string, int, bool) {
	arr, arrOff, arrOK := extractJSONArray(raw)
	obj, objOff, objOK := extractJSONObject(raw)
	switch {
	case arrOK && objOK:
		if arrOff < objOff {
			return arr, arrOff, true
		}
		return obj, objOff, true
	case arrOK:
		return arr, arrOff, true
	case objOK:
		return obj, objOff, true
	default:
		return "", -1, false
	}
}

func extractFromFence(raw string) (string, int, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", -1, false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", -1, false
	}
	block := rest[:end]
	offset := start + len(codeFence)
	block = strings.TrimLeft(block, "\r\n")
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
			offset += idx + 1
		}
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return "", -1, false
	}
	return block, offset, true
}

func extractJSONArray(raw string) (string, int, bool) {
	start := strings.Index(raw, "[")
	if start == -1 {
		return "", -1, false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}

func extractJSONObject(raw string) (string, int, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", -1, false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}
