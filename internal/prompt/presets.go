package prompt

import (
	"fmt"
	"strings"

	"github.com/subpipe/backend/internal/subtitle"
)

// SystemPrompt returns the translation system prompt for a given preset.
func SystemPrompt(preset, sourceLang, targetLang, customPrompt string) string {
	base := fmt.Sprintf(
		"You are a professional subtitle translator. Translate subtitles from %s to %s. "+
			"Maintain the original meaning and timing constraints. "+
			"Keep translations concise and natural for subtitle display.",
		langName(sourceLang), langName(targetLang),
	)

	switch preset {
	case "anime":
		return base + "\n\n" +
			"Additional guidelines for anime translation:\n" +
			"- Use casual, natural speech patterns appropriate for anime dialogue\n" +
			"- Preserve honorifics (-san, -kun, -chan, -senpai, -sensei) where the target language keeps them\n" +
			"- Keep character name consistency\n" +
			"- Match the emotional tone (excited, serious, comedic)"

	case "movie":
		return base + "\n\n" +
			"Additional guidelines for movie/drama translation:\n" +
			"- Use natural conversational style appropriate for the genre\n" +
			"- Preserve cultural nuances and idioms with equivalent expressions\n" +
			"- Maintain formal/informal register matching the original dialogue\n" +
			"- Keep subtitles readable within typical display time (max 2 lines)"

	case "documentary":
		return base + "\n\n" +
			"Additional guidelines for documentary translation:\n" +
			"- Use formal, precise language\n" +
			"- Preserve all technical terminology with accurate translations\n" +
			"- Maintain proper nouns, scientific names, and place names\n" +
			"- Keep numbers, dates, and measurements accurate"

	case "custom":
		if customPrompt != "" {
			return base + "\n\nUser instructions: " + customPrompt
		}
		return base

	default:
		return base
	}
}

// VTTUserPrompt builds the user prompt for plain-text mode: the chunk is
// sent as WebVTT and the model must return WebVTT with identical timecodes.
// Context cues from the previous chunk are framed separately and must not be
// echoed back.
func VTTUserPrompt(chunkVTT, contextVTT string) string {
	var sb strings.Builder
	if contextVTT != "" {
		sb.WriteString("Previous cues, for continuity only. Do NOT include them in your output:\n\n")
		sb.WriteString(contextVTT)
		sb.WriteString("\n")
	}
	sb.WriteString("Translate the following WebVTT subtitle chunk. ")
	sb.WriteString("Return ONLY valid WebVTT with exactly the same number of cues and exactly the same timecodes. ")
	sb.WriteString("Do not wrap the output in a code fence.\n\n")
	sb.WriteString(chunkVTT)
	return sb.String()
}

// StructuredUserPrompt builds the user prompt for structured mode: cues are
// numbered and the model must answer with the translations JSON contract.
func StructuredUserPrompt(cues []subtitle.Cue, contextVTT string) string {
	var sb strings.Builder
	if contextVTT != "" {
		sb.WriteString("Previous cues, for continuity only. Do NOT translate them:\n\n")
		sb.WriteString(contextVTT)
		sb.WriteString("\n")
	}
	sb.WriteString("Translate the following numbered subtitle cues. ")
	sb.WriteString(`Respond with ONLY a JSON object of the form {"translations":[{"id":1,"text":"..."},...]}. `)
	sb.WriteString(`Set "merge_with_next":true on an entry when its cue and the next one read better as a single subtitle.` + "\n\n")
	for i, cue := range cues {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, strings.ReplaceAll(cue.Text, "\n", " ")))
	}
	sb.WriteString(fmt.Sprintf("\nReturn exactly one entry per cue id from 1 to %d.", len(cues)))
	return sb.String()
}

func langName(code string) string {
	names := map[string]string{
		"ko":   "Korean",
		"en":   "English",
		"ja":   "Japanese",
		"zh":   "Chinese",
		"es":   "Spanish",
		"fr":   "French",
		"de":   "German",
		"pt":   "Portuguese",
		"it":   "Italian",
		"ru":   "Russian",
		"ar":   "Arabic",
		"hi":   "Hindi",
		"th":   "Thai",
		"vi":   "Vietnamese",
		"id":   "Indonesian",
		"auto": "the auto-detected language",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
