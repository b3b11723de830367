package judge

import (
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var ErrEmpty = errors.New("empty response from judge")

// Content returns the text of the first choice.
func Content(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmpty
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}
