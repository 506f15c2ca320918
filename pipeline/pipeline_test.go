package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/media"
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/runner"
	"github.com/voxelbird/scenesmith/tool"
)

var testKeywords = []string{"mitochondria", "cell", "atp", "energy", "organelle"}

const validKeywordsJSON = `{"keywords": ["mitochondria", "cell", "atp", "energy", "organelle"]}`

func manifestJSON(keywords []string) string {
	entries := make([]map[string]string, 0, len(keywords))
	for _, kw := range keywords {
		entries = append(entries, map[string]string{"keyword": kw, "file": kw + ".png"})
	}
	data, _ := json.Marshal(map[string]any{"artifacts": entries})
	return string(data)
}

// imageCallsResponse scripts one tool round requesting generate_image for
// every keyword.
func imageCallsResponse(keywords []string) *model.Response {
	calls := make([]core.ToolCallRequest, 0, len(keywords))
	for i, kw := range keywords {
		calls = append(calls, core.ToolCallRequest{
			ID:        fmt.Sprintf("c%d", i+1),
			Name:      "generate_image",
			Arguments: fmt.Sprintf(`{"keyword": %q}`, kw),
		})
	}
	return model.ToolCallResponse(calls...)
}

// newTestPipeline wires scripted stage models into a full pipeline. The
// artifact agent carries a real generate_image tool writing into dir.
func newTestPipeline(t *testing.T, dir string, scriptModel, keywordModel, artifactModel model.Model, optFns ...func(o *Options)) *Pipeline {
	t.Helper()

	scriptAgent := agent.New("script_writer", scriptModel)
	keywordAgent := agent.New("keyword_extractor", keywordModel)
	artifactAgent := agent.New("media_producer", artifactModel, func(o *agent.Options) {
		o.Tools = []tool.Tool{media.NewGenerateImageTool(dir)}
	})

	return New(runner.New(), scriptAgent, keywordAgent, artifactAgent, optFns...)
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	scriptModel := model.NewScriptedModel("script", model.TextResponse(validScriptJSON))
	keywordModel := model.NewScriptedModel("keywords", model.TextResponse(validKeywordsJSON))
	artifactModel := model.NewScriptedModel("artifacts",
		imageCallsResponse(testKeywords),
		model.TextResponse(manifestJSON(testKeywords)),
	)

	p := newTestPipeline(t, dir, scriptModel, keywordModel, artifactModel)
	res, err := p.Run(context.Background(), Request{Topic: "The powerhouse of the cell", SceneCount: 3})

	assert.NoError(t, err)
	assert.Len(t, res.Script.Scenes, 3)
	assert.Equal(t, testKeywords, res.Keywords)
	assert.Len(t, res.Manifest.Artifacts, len(testKeywords))

	// One artifact descriptor per keyword, recorded by the actual tool
	// calls. Tools in one round may run in parallel, so compare as a set.
	assert.Len(t, res.Artifacts, len(testKeywords))
	var recorded []string
	for _, art := range res.Artifacts {
		recorded = append(recorded, art.Keyword)
		assert.FileExists(t, art.Path)
	}
	assert.ElementsMatch(t, testKeywords, recorded)

	// The result persists under a topic-derived filename.
	path, err := res.Save(dir)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "the_powerhouse_of_the_cell.json"), path)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "The powerhouse of the cell", decoded["topic"])
}

func TestPipeline_RetryOnViolationThenSucceed(t *testing.T) {
	// First script answer misses a title; the corrective re-prompt in the
	// same session must rescue the stage.
	badScript := `{"scenes": [{"content": ["no title here"]}, {"title": "Two", "content": ["b"]}, {"title": "Three", "content": ["c"]}]}`

	scriptModel := model.NewScriptedModel("script",
		model.TextResponse(badScript),
		model.TextResponse(validScriptJSON),
	)
	keywordModel := model.NewScriptedModel("keywords", model.TextResponse(validKeywordsJSON))
	artifactModel := model.NewScriptedModel("artifacts",
		imageCallsResponse(testKeywords),
		model.TextResponse(manifestJSON(testKeywords)),
	)

	p := newTestPipeline(t, t.TempDir(), scriptModel, keywordModel, artifactModel)
	res, err := p.Run(context.Background(), Request{Topic: "Cells", SceneCount: 3})

	assert.NoError(t, err)
	assert.Len(t, res.Script.Scenes, 3)

	// Two model calls: the original prompt and one corrective turn that
	// names the mismatch.
	assert.Len(t, scriptModel.Requests, 2)
	second := scriptModel.Requests[1]
	last := second.Contents[len(second.Contents)-1]
	text := ""
	for _, part := range last.Parts {
		if tp, ok := part.(core.TextPart); ok {
			text += tp.Text
		}
	}
	assert.Contains(t, text, "did not match")
}

func TestPipeline_AbortOnViolation(t *testing.T) {
	scriptModel := model.NewScriptedModel("script", model.TextResponse(`{"acts": []}`))

	p := newTestPipeline(t, t.TempDir(), scriptModel,
		model.NewScriptedModel("keywords"), model.NewScriptedModel("artifacts"),
		func(o *Options) { o.Retry = AbortOnViolation })

	res, err := p.Run(context.Background(), Request{Topic: "Cells", SceneCount: 3})

	var stageErr *StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageScript, stageErr.Stage)
	assert.False(t, stageErr.Cancelled())

	var violation *ContractViolationError
	assert.True(t, errors.As(err, &violation))
	assert.Equal(t, StageScript, violation.Stage)

	// Only one model call: no corrective turn under AbortOnViolation.
	assert.Len(t, scriptModel.Requests, 1)

	// Partial result: nothing completed.
	assert.Nil(t, res.Script)
	assert.Nil(t, res.Keywords)
}

func TestPipeline_SecondViolationAborts(t *testing.T) {
	scriptModel := model.NewScriptedModel("script",
		model.TextResponse(`{"acts": []}`),
		model.TextResponse(`still not a script`),
	)

	p := newTestPipeline(t, t.TempDir(), scriptModel,
		model.NewScriptedModel("keywords"), model.NewScriptedModel("artifacts"))

	_, err := p.Run(context.Background(), Request{Topic: "Cells", SceneCount: 3})

	var violation *ContractViolationError
	assert.True(t, errors.As(err, &violation))
	assert.Len(t, scriptModel.Requests, 2)
}

func TestPipeline_CancellationMidRunKeepsEarlierStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	scriptModel := model.NewScriptedModel("script", model.TextResponse(validScriptJSON))
	// The keyword agent starts a tool round while the context gets
	// cancelled, so the loop observes cancellation at its next suspension
	// point instead of terminating normally.
	keywordModel := model.NewScriptedModel("keywords",
		model.ToolCallResponse(core.ToolCallRequest{Name: "noop"}))
	keywordModel.Hook = func(model.Request) { cancel() }

	p := newTestPipeline(t, t.TempDir(), scriptModel, keywordModel, model.NewScriptedModel("artifacts"))
	res, err := p.Run(ctx, Request{Topic: "Cells", SceneCount: 3})

	var stageErr *StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageKeywords, stageErr.Stage)
	assert.True(t, stageErr.Cancelled())

	// The completed script survives; later stage outputs stay empty.
	assert.NotNil(t, res.Script)
	assert.Len(t, res.Script.Scenes, 3)
	assert.Nil(t, res.Keywords)
	assert.Nil(t, res.Manifest)
}

func TestPipeline_ArtifactsSurviveManifestRetry(t *testing.T) {
	dir := t.TempDir()

	// The producer generates every image in its first attempt but answers
	// with a malformed manifest. The corrective attempt fixes the manifest
	// without re-invoking tools; the artifacts from the first attempt must
	// still land on the result.
	artifactModel := model.NewScriptedModel("artifacts",
		imageCallsResponse(testKeywords),
		model.TextResponse(manifestJSON(testKeywords[:4])),
		model.TextResponse(manifestJSON(testKeywords)),
	)

	p := newTestPipeline(t, dir,
		model.NewScriptedModel("script", model.TextResponse(validScriptJSON)),
		model.NewScriptedModel("keywords", model.TextResponse(validKeywordsJSON)),
		artifactModel)

	res, err := p.Run(context.Background(), Request{Topic: "Cells", SceneCount: 3})

	assert.NoError(t, err)
	assert.Len(t, res.Manifest.Artifacts, len(testKeywords))
	assert.Len(t, res.Artifacts, len(testKeywords))
	var recorded []string
	for _, art := range res.Artifacts {
		recorded = append(recorded, art.Keyword)
		assert.FileExists(t, art.Path)
	}
	assert.ElementsMatch(t, testKeywords, recorded)
}

func TestPipeline_ManifestMismatchFails(t *testing.T) {
	// The producer reports a manifest missing one keyword, twice.
	short := manifestJSON(testKeywords[:4])
	artifactModel := model.NewScriptedModel("artifacts",
		imageCallsResponse(testKeywords),
		model.TextResponse(short),
		model.TextResponse(short),
	)

	p := newTestPipeline(t, t.TempDir(),
		model.NewScriptedModel("script", model.TextResponse(validScriptJSON)),
		model.NewScriptedModel("keywords", model.TextResponse(validKeywordsJSON)),
		artifactModel)

	res, err := p.Run(context.Background(), Request{Topic: "Cells", SceneCount: 3})

	var stageErr *StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageArtifacts, stageErr.Stage)

	// Earlier stage outputs are preserved on the partial result.
	assert.NotNil(t, res.Script)
	assert.Equal(t, testKeywords, res.Keywords)
	assert.Nil(t, res.Manifest)
}

func TestPipeline_EmptyTopicRejected(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(),
		model.NewScriptedModel("script"), model.NewScriptedModel("keywords"), model.NewScriptedModel("artifacts"))

	_, err := p.Run(context.Background(), Request{})
	assert.Error(t, err)
}

func TestRunAutonomous(t *testing.T) {
	dir := t.TempDir()

	llm := model.NewScriptedModel("producer",
		imageCallsResponse(testKeywords[:2]),
		model.TextResponse("package complete"),
	)
	ag := agent.New("producer", llm, func(o *agent.Options) {
		o.Tools = []tool.Tool{media.NewGenerateImageTool(dir)}
	})

	r := runner.New()
	key := core.SessionKey{AppID: "app", UserID: "u1", SessionID: "auto"}
	res, err := RunAutonomous(context.Background(), r, ag, key, Request{Topic: "Cells"})

	assert.NoError(t, err)
	assert.Equal(t, "package complete", res.FinalText)
	assert.Equal(t, 1, res.Iterations)
	assert.Len(t, res.Artifacts, 2)

	// The combined prompt names the whole task.
	first := llm.Requests[0]
	text := ""
	for _, part := range first.Contents[0].Parts {
		if tp, ok := part.(core.TextPart); ok {
			text += tp.Text
		}
	}
	assert.True(t, strings.Contains(text, "Cells"))
	assert.True(t, strings.Contains(text, "generate_image"))
}
