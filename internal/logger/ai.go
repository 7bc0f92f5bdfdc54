package logger

import (
	"io"
	"log"
	"strings"
	"sync"

	"marketscan/internal/pkg/jsonutil"
)

var (
	aiMu          sync.Mutex
	aiLog         *log.Logger
	aiDumpPayload bool
)

// SetAIWriter directs the AI request/response audit trail to w. Nil disables it.
func SetAIWriter(w io.Writer) {
	aiMu.Lock()
	defer aiMu.Unlock()
	if w == nil {
		aiLog = nil
		return
	}
	aiLog = log.New(w, "", log.LstdFlags)
}

// EnableAIPayloadDump includes the raw HTTP payload in request records.
func EnableAIPayloadDump(enabled bool) {
	aiMu.Lock()
	aiDumpPayload = enabled
	aiMu.Unlock()
}

type aiSection struct {
	title string
	body  string
}

func logAI(kind, purpose string, sections []aiSection) {
	aiMu.Lock()
	l := aiLog
	aiMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[AI][")
	b.WriteString(kind)
	b.WriteString("]")
	if purpose != "" {
		b.WriteString("[")
		b.WriteString(purpose)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.body)
		if !strings.HasSuffix(sec.body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogAIRequest(purpose, systemPrompt, userPrompt, payload string) {
	sections := []aiSection{
		{title: "SYSTEM", body: systemPrompt},
		{title: "USER", body: userPrompt},
	}
	aiMu.Lock()
	dump := aiDumpPayload
	aiMu.Unlock()
	if dump && strings.TrimSpace(payload) != "" {
		sections = append(sections, aiSection{title: "PAYLOAD", body: jsonutil.Pretty(payload)})
	}
	logAI("request", purpose, sections)
}

func LogAIResponse(purpose, raw string) {
	logAI("response", purpose, []aiSection{{title: "RAW", body: raw}})
}
