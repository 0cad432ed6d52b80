package embedding

import (
	"fmt"
	"strings"

	"rag-patient-be/internal/entity"
)

// FragmentText builds the string that gets embedded for a knowledge fragment:
// the fragment text plus a compact metadata line, so that topic and emotional
// register contribute to the vector.
//
//	<text>
//	META: topic:sleep | availability:gated | emotion:anxious | tags:hook,key
func FragmentText(text string, meta entity.FragmentMetadata, availability string) string {
	var parts []string

	if meta.Topic != "" {
		parts = append(parts, fmt.Sprintf("topic:%s", meta.Topic))
	}
	if availability != "" {
		parts = append(parts, fmt.Sprintf("availability:%s", availability))
	}
	if meta.EmotionLabel != "" {
		parts = append(parts, fmt.Sprintf("emotion:%s", meta.EmotionLabel))
	}
	if len(meta.Tags) > 0 {
		tags := meta.Tags
		if len(tags) > 3 {
			tags = tags[:3]
		}
		parts = append(parts, fmt.Sprintf("tags:%s", strings.Join(tags, ",")))
	}

	if len(parts) == 0 {
		return text
	}
	return text + "\nMETA: " + strings.Join(parts, " | ")
}
