// Package report turns an evaluation into a document for people: plain text
// for the terminal, markdown, a standalone HTML page or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/valpere/speechjudge/internal/evaluator"
	"github.com/valpere/speechjudge/internal/judge"
	"github.com/valpere/speechjudge/internal/postprocess"
	"github.com/valpere/speechjudge/internal/prompt"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name; "md" is an alias for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, markdown, html or json)", s)
	}
}

// Report is the displayable form of one evaluation.
type Report struct {
	ID              string       `json:"id"`
	Model           string       `json:"model"`
	Segments        []string     `json:"segments"`
	Transcript      string       `json:"transcript"`
	Language        string       `json:"language,omitempty"`
	LanguageWarning string       `json:"language_warning,omitempty"`
	Evaluation      string       `json:"evaluation"`
	TotalScore      *int         `json:"total_score,omitempty"`
	MaxScore        int          `json:"max_score"`
	Usage           openai.Usage `json:"usage"`
	ElapsedMS       int64        `json:"elapsed_ms"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Build assembles a report. The chat response is read, never modified; the
// displayed evaluation text is cleaned of model artifacts.
func Build(id string, ev *evaluator.Evaluation) (*Report, error) {
	if ev == nil {
		return nil, fmt.Errorf("no evaluation to report")
	}

	content, err := judge.Content(ev.Response)
	if err != nil {
		return nil, err
	}
	text := postprocess.Clean(content)

	model := ev.Response.Model
	r := &Report{
		ID:         id,
		Model:      model,
		Segments:   ev.Segments.IDs(),
		Transcript: ev.Transcript,
		Evaluation: text,
		MaxScore:   prompt.MaxScore,
		Usage:      ev.Response.Usage,
		ElapsedMS:  ev.Elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if score, ok := TotalScore(text); ok {
		r.TotalScore = &score
	}
	return r, nil
}

var totalScoreRe = regexp.MustCompile(`(?i)total\s+score\s*(?:\(?\s*out\s+of\s+70(?:\s+points)?\s*\)?)?[^0-9\n]{0,24}(\d{1,3})`)

// TotalScore finds the "Total Score" the judge reported. Values above the
// rubric maximum are rejected.
func TotalScore(text string) (int, bool) {
	m := totalScoreRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > prompt.MaxScore {
		return 0, false
	}
	return n, true
}

// Markdown returns the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Speech evaluation\n\n")
	fmt.Fprintf(&b, "- **ID:** %s\n", r.ID)
	if r.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", r.Model)
	}
	if r.Language != "" {
		fmt.Fprintf(&b, "- **Transcript language:** %s\n", r.Language)
	}
	fmt.Fprintf(&b, "- **Segments:** %d\n", len(r.Segments))
	if r.TotalScore != nil {
		fmt.Fprintf(&b, "- **Total score:** %d/%d\n", *r.TotalScore, r.MaxScore)
	}
	if r.LanguageWarning != "" {
		fmt.Fprintf(&b, "\n> **Warning:** %s\n", r.LanguageWarning)
	}

	b.WriteString("\n## Evaluation\n\n")
	b.WriteString(r.Evaluation)
	b.WriteString("\n\n## Transcript\n\n")
	if r.Transcript == "" {
		b.WriteString("_(empty transcript)_\n")
	} else {
		for _, line := range strings.Split(r.Transcript, "\n") {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Render writes the report in the given format.
func (r *Report) Render(w io.Writer, format Format) error {
	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	case FormatMarkdown:
		_, err = io.WriteString(w, r.Markdown())
	case FormatHTML:
		_, err = io.WriteString(w, ToHTMLPage([]byte(r.Markdown()), "Speech evaluation "+r.ID))
	case FormatText, "":
		_, err = io.WriteString(w, r.text())
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *Report) text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Evaluation %s\n", r.ID)
	fmt.Fprintf(&b, "Model: %s  Segments: %d", r.Model, len(r.Segments))
	if r.Language != "" {
		fmt.Fprintf(&b, "  Language: %s", r.Language)
	}
	b.WriteString("\n")
	if r.TotalScore != nil {
		fmt.Fprintf(&b, "Total score: %d/%d\n", *r.TotalScore, r.MaxScore)
	}
	if r.LanguageWarning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", r.LanguageWarning)
	}
	b.WriteString("\n")
	b.WriteString(ToPlainText([]byte(r.Evaluation)))
	b.WriteString("\n")
	return b.String()
}
