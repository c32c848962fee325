package translate

import (
	"context"
	"fmt"
	"strings"

	"dubshorts/internal/services"
	"dubshorts/internal/textchunk"
)

// Translator renders a text segment in the target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Chunked splits text into segments of at most maxChars, translates each in
// order and rejoins the results with single spaces. The first failing segment
// aborts the whole translation; no partial output is returned.
func Chunked(ctx context.Context, t Translator, text, target string, maxChars int) (string, error) {
	if t == nil {
		return "", services.Wrap(services.ErrTranslation, "translating", "chunked translate", "translator unavailable", nil)
	}
	segments := textchunk.Split(text, maxChars)
	if len(segments) == 0 {
		return "", nil
	}
	translated := make([]string, 0, len(segments))
	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := t.Translate(ctx, segment, target)
		if err != nil {
			return "", services.Wrap(services.ErrTranslation, "translating", "chunked translate",
				fmt.Sprintf("segment %d/%d", i+1, len(segments)), err)
		}
		translated = append(translated, strings.TrimSpace(out))
	}
	return strings.Join(translated, " "), nil
}
