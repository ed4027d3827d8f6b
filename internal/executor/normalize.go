package executor

import (
	"errors"
	"regexp"
	"strings"

	"compforge/internal/llmclient"
	"compforge/internal/util/jsonutil"
)

var errNoContent = errors.New("response carries no recognized content shape")

// normalizeResponse coerces a provider response into one canonical text
// payload. The closed set of shapes is: choice/role based, plain text, and
// block list. New shapes are added here, never at call sites.
func normalizeResponse(resp llmclient.RawResponse) (string, error) {
	switch {
	case len(resp.Choices) > 0:
		return resp.Choices[0].Content, nil
	case len(resp.Blocks) > 0:
		var texts []string
		for _, b := range resp.Blocks {
			if b.Type == "text" && b.Text != "" {
				texts = append(texts, b.Text)
			}
		}
		if len(texts) == 0 {
			return "", errNoContent
		}
		return strings.Join(texts, "\n"), nil
	case resp.Text != "":
		return resp.Text, nil
	default:
		return "", errNoContent
	}
}

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")

// extractJSON pulls structured data out of normalized text: a fenced json
// block wins, otherwise the whole text must parse as a JSON object.
func extractJSON(text string) (map[string]any, error) {
	candidate := text
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}
	var payload map[string]any
	if err := jsonutil.UnmarshalFlex([]byte(strings.TrimSpace(candidate)), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
