package pipeline

import (
	"fmt"
	"strings"
)

const scriptInstruction = `You are an expert educational scriptwriter. You turn a topic into a
short, engaging video script that a narrator can read aloud. Keep
language clear and concrete. When asked for JSON, reply with only the
JSON document and nothing else.`

const keywordInstruction = `You are a visual researcher. Given a video script, you pick the
concrete nouns and concepts that would make strong illustrative
imagery. When asked for JSON, reply with only the JSON document and
nothing else.`

const artifactInstruction = `You are a media producer. You generate the visual assets for a video
script using the tools available to you, then report what you made.
When asked for JSON, reply with only the JSON document and nothing
else.`

func scriptPrompt(topic, language string, sceneCount int) string {
	return fmt.Sprintf(`Write a video script about the following topic: %s

The script must have exactly %d scenes and be written in %s.

Reply with only a JSON object of this exact shape:
{"scenes": [{"title": "scene title", "content": ["narration line", "..."]}]}

Every scene needs a title and at least one narration line.`, topic, sceneCount, language)
}

func keywordPrompt(script *Script, minKeywords, maxKeywords int) string {
	var b strings.Builder
	for _, sc := range script.Scenes {
		fmt.Fprintf(&b, "## %s\n", sc.Title)
		for _, line := range sc.Content {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return fmt.Sprintf(`Extract between %d and %d visual search keywords from this script:

%s
Reply with only a JSON object of this exact shape:
{"keywords": ["keyword", "..."]}`, minKeywords, maxKeywords, b.String())
}

func artifactPrompt(keywords []string) string {
	return fmt.Sprintf(`Generate one image for each of these keywords, by calling the
generate_image tool exactly once per keyword: %s

When every image has been generated, reply with only a JSON object of
this exact shape, one entry per keyword:
{"artifacts": [{"keyword": "keyword", "file": "path returned by the tool"}]}`,
		strings.Join(keywords, ", "))
}

func correctivePrompt(contract StageContract, reason string) string {
	return fmt.Sprintf(`Your previous answer did not match the required shape: %s.

Reply again with only %s. No prose, no code fences.`, reason, contract.Describe())
}
