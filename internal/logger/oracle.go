package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	oracleMu  sync.Mutex
	oracleLog *log.Logger
)

// SetOracleWriter enables (or disables, with nil) the oracle transcript log.
// Transcripts record full prompt/response round-trips for later review.
func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

type oracleSection struct {
	Title string
	Body  string
}

func logOracle(kind, model, purpose string, sections []oracleSection) {
	oracleMu.Lock()
	lg := oracleLog
	oracleMu.Unlock()
	if lg == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE][" + kind + "]")
	if model != "" {
		b.WriteString("[" + model + "]")
	}
	if purpose != "" {
		b.WriteString("[" + purpose + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- " + title + " ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	lg.Print(b.String())
}

func LogOracleRequest(model, purpose, systemPrompt, userPrompt string) {
	logOracle("request", model, purpose, []oracleSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func LogOracleResponse(model, purpose, raw string) {
	logOracle("response", model, purpose, []oracleSection{{Title: "RAW", Body: raw}})
}
