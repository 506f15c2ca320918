package pipeline

import (
	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/tool"
)

// NewAgents builds the three standard stage agents over a single model.
// The script and keyword agents are pure text agents; the artifact agent
// carries the given media tools.
func NewAgents(llm model.Model, artifactTools ...tool.Tool) (script, keyword, artifact *agent.Agent) {
	script = agent.New("script_writer", llm, func(o *agent.Options) {
		o.Description = "Writes multi-scene video scripts"
		o.Instruction = scriptInstruction
	})
	keyword = agent.New("keyword_extractor", llm, func(o *agent.Options) {
		o.Description = "Extracts visual keywords from scripts"
		o.Instruction = keywordInstruction
	})
	artifact = agent.New("media_producer", llm, func(o *agent.Options) {
		o.Description = "Generates media assets for keywords"
		o.Instruction = artifactInstruction
		o.Tools = artifactTools
	})
	return script, keyword, artifact
}
