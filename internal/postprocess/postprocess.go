// Package postprocess removes common LLM artifacts from an evaluation before
// it is displayed.
//
// Only the rendered report goes through Clean; the chat response itself is
// never modified.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Code fence unwrapping
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeFenceWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns match introductory phrases models prepend to an evaluation.
// Each pattern is anchored to the start of the string and requires a colon
// so headings such as "Evaluation of the Speech" survive.
var echoPatterns = []*regexp.Regexp{
	// "Certainly / Sure / Of course[,!.]" lead-in before an echo
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course|absolutely)[,.!]?\s+`),
	// "Here is / Here's [the|my|an] [detailed|structured] evaluation [of the speech]:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| my| an| a)? (?:detailed |structured |full |complete )?(?:evaluation|assessment|judgement|judgment)(?: of the (?:debate )?speech)?\s*:`),
}

func removeInstructionEchoes(text string) string {
	original := text
	if loc := echoPatterns[0].FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	if loc := echoPatterns[1].FindStringIndex(text); loc != nil && loc[0] == 0 {
		return strings.TrimSpace(text[loc[1]:])
	}
	// A bare "Certainly," without an echo is content, keep it.
	return original
}

// --- Phase 3: code fence wrapping ---

// fenceRe matches an evaluation wrapped entirely in one fenced block, e.g.
// "```markdown\n...\n```".
var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n```$")

func removeFenceWrapping(text string) string {
	text = strings.TrimSpace(text)
	m := fenceRe.FindStringSubmatch(text)
	if m == nil || strings.Contains(m[1], "```") {
		return text
	}
	return strings.TrimSpace(m[1])
}
