package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/observability"
	"github.com/voxelbird/scenesmith/session"
	"github.com/voxelbird/scenesmith/tool"
)

func testKey(id string) core.SessionKey {
	return core.SessionKey{AppID: "app", UserID: "u1", SessionID: id}
}

func emptySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func newRunnerWithSession(t *testing.T, id string, optFns ...func(o *Options)) *Runner {
	t.Helper()
	r := New(optFns...)
	_, err := r.Sessions().Create(testKey(id))
	assert.NoError(t, err)
	return r
}

func TestRun_FinalAnswerWithoutTools(t *testing.T) {
	llm := model.NewScriptedModel("m", model.TextResponse("the answer"))
	ag := agent.New("writer", llm)

	r := newRunnerWithSession(t, "s1")
	res, err := r.Run(context.Background(), ag, testKey("s1"), "question")

	assert.NoError(t, err)
	assert.Equal(t, "the answer", res.FinalText)
	assert.Equal(t, 0, res.Iterations)
	assert.NotEmpty(t, res.RunID)

	sess, err := r.Sessions().Get(testKey("s1"))
	assert.NoError(t, err)
	turns := sess.Turns()
	assert.Len(t, turns, 2) // user + final assistant
	assert.True(t, turns[1].IsFinal())
}

func TestRun_ToolRoundThenFinal(t *testing.T) {
	llm := model.NewScriptedModel("m",
		model.ToolCallResponse(core.ToolCallRequest{ID: "c1", Name: "echo", Arguments: `{"text": "hi"}`}),
		model.TextResponse("done"),
	)

	echo := tool.NewFunctionTool("echo", "Echo text", emptySchema(),
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["text"], nil
		})
	ag := agent.New("worker", llm, func(o *agent.Options) { o.Tools = []tool.Tool{echo} })

	r := newRunnerWithSession(t, "s1")
	res, err := r.Run(context.Background(), ag, testKey("s1"), "go")

	assert.NoError(t, err)
	assert.Equal(t, "done", res.FinalText)
	assert.Equal(t, 1, res.Iterations)

	sess, err := r.Sessions().Get(testKey("s1"))
	assert.NoError(t, err)
	turns := sess.Turns()
	// user, assistant tool call, tool result, final assistant
	assert.Len(t, turns, 4)
	assert.Equal(t, core.RoleTool, turns[2].Content.Role)

	results := turns[2].ToolResults()
	assert.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, "hi", results[0].Payload)
}

func TestRun_RecordsMetrics(t *testing.T) {
	// One tool round then a final answer: two model calls, one dispatch.
	llm := model.NewScriptedModel("m",
		model.ToolCallResponse(core.ToolCallRequest{ID: "c1", Name: "echo", Arguments: `{"text": "hi"}`}),
		model.TextResponse("done"),
	)
	echo := tool.NewFunctionTool("echo", "Echo text", emptySchema(),
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["text"], nil
		})
	ag := agent.New("worker", llm, func(o *agent.Options) { o.Tools = []tool.Tool{echo} })

	reg := prometheus.NewRegistry()
	r := newRunnerWithSession(t, "s1", func(o *Options) {
		o.Metrics = observability.NewMetrics(reg)
	})

	_, err := r.Run(context.Background(), ag, testKey("s1"), "go")
	assert.NoError(t, err)

	expected := `
# HELP scenesmith_model_calls_total Model generate calls by agent and outcome.
# TYPE scenesmith_model_calls_total counter
scenesmith_model_calls_total{agent="worker",outcome="ok"} 2
# HELP scenesmith_tool_dispatches_total Tool dispatches by tool name and outcome.
# TYPE scenesmith_tool_dispatches_total counter
scenesmith_tool_dispatches_total{outcome="ok",tool="echo"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"scenesmith_model_calls_total", "scenesmith_tool_dispatches_total"))
}

func TestRun_ResultsAppendedInRequestOrder(t *testing.T) {
	// Tools complete in reverse request order; results must still be
	// appended in request order.
	var mu sync.Mutex
	var completed []string

	makeTool := func(name string, delay time.Duration) tool.Tool {
		return tool.NewFunctionTool(name, "Delayed tool", emptySchema(),
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				time.Sleep(delay)
				mu.Lock()
				completed = append(completed, name)
				mu.Unlock()
				return name, nil
			})
	}

	llm := model.NewScriptedModel("m",
		model.ToolCallResponse(
			core.ToolCallRequest{ID: "c1", Name: "alpha"},
			core.ToolCallRequest{ID: "c2", Name: "beta"},
			core.ToolCallRequest{ID: "c3", Name: "gamma"},
		),
		model.TextResponse("done"),
	)
	ag := agent.New("worker", llm, func(o *agent.Options) {
		o.Tools = []tool.Tool{
			makeTool("alpha", 60*time.Millisecond),
			makeTool("beta", 30*time.Millisecond),
			makeTool("gamma", 0),
		}
	})

	r := newRunnerWithSession(t, "s1")
	_, err := r.Run(context.Background(), ag, testKey("s1"), "go")
	assert.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"gamma", "beta", "alpha"}, completed)
	mu.Unlock()

	sess, err := r.Sessions().Get(testKey("s1"))
	assert.NoError(t, err)

	var appended []string
	for _, turn := range sess.Turns() {
		for _, res := range turn.ToolResults() {
			appended = append(appended, res.Name)
		}
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, appended)
}

func TestRun_LoopExhaustedAfterCap(t *testing.T) {
	// The model keeps requesting tools; the loop must dispatch exactly
	// MaxIterations rounds and then fail as exhausted.
	var dispatches int
	var mu sync.Mutex
	counting := tool.NewFunctionTool("count", "Counts calls", emptySchema(),
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			mu.Lock()
			dispatches++
			mu.Unlock()
			return "again", nil
		})

	llm := model.NewScriptedModel("m")
	llm.Repeat = model.ToolCallResponse(core.ToolCallRequest{Name: "count"})
	ag := agent.New("worker", llm, func(o *agent.Options) { o.Tools = []tool.Tool{counting} })

	r := newRunnerWithSession(t, "s1", func(o *Options) { o.MaxIterations = 3 })
	_, err := r.Run(context.Background(), ag, testKey("s1"), "go")

	var exhausted *LoopExhaustedError
	assert.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "worker", exhausted.Agent)
	assert.Equal(t, 3, exhausted.Iterations)

	mu.Lock()
	assert.Equal(t, 3, dispatches)
	mu.Unlock()
}

func TestRun_CancellationIsNotExhaustion(t *testing.T) {
	llm := model.NewScriptedModel("m")
	llm.Repeat = model.ToolCallResponse(core.ToolCallRequest{Name: "noop"})
	noop := tool.NewFunctionTool("noop", "Does nothing", emptySchema(),
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return nil, nil })
	ag := agent.New("worker", llm, func(o *agent.Options) { o.Tools = []tool.Tool{noop} })

	ctx, cancel := context.WithCancel(context.Background())
	llm.Hook = func(model.Request) { cancel() } // cancel mid-run

	r := newRunnerWithSession(t, "s1")
	_, err := r.Run(ctx, ag, testKey("s1"), "go")

	assert.ErrorIs(t, err, context.Canceled)
	var exhausted *LoopExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestRun_UnknownSessionFails(t *testing.T) {
	llm := model.NewScriptedModel("m", model.TextResponse("never"))
	ag := agent.New("writer", llm)

	r := New()
	_, err := r.Run(context.Background(), ag, testKey("missing"), "go")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}

func TestRun_ToolFailureFedBackAsData(t *testing.T) {
	llm := model.NewScriptedModel("m",
		model.ToolCallResponse(core.ToolCallRequest{ID: "c1", Name: "broken"}),
		model.TextResponse("recovered"),
	)
	broken := tool.NewFunctionTool("broken", "Always fails", emptySchema(),
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, errors.New("tool blew up")
		})
	ag := agent.New("worker", llm, func(o *agent.Options) { o.Tools = []tool.Tool{broken} })

	r := newRunnerWithSession(t, "s1")
	res, err := r.Run(context.Background(), ag, testKey("s1"), "go")

	// The loop survives: the failure travels back to the model as a result.
	assert.NoError(t, err)
	assert.Equal(t, "recovered", res.FinalText)

	sess, _ := r.Sessions().Get(testKey("s1"))
	var failures int
	for _, turn := range sess.Turns() {
		for _, tr := range turn.ToolResults() {
			if tr.Failed() {
				failures++
			}
		}
	}
	assert.Equal(t, 1, failures)
}

func TestRun_ArtifactsRecordedUnderRunID(t *testing.T) {
	llm := model.NewScriptedModel("m",
		model.ToolCallResponse(core.ToolCallRequest{ID: "c1", Name: "record"}),
		model.TextResponse("done"),
	)
	record := tool.NewFunctionTool("record", "Records an artifact", emptySchema(),
		func(toolCtx *core.ToolContext, _ map[string]any) (any, error) {
			err := toolCtx.RecordArtifact(core.Artifact{Keyword: "cell", Tool: "record"})
			return "saved", err
		})
	ag := agent.New("worker", llm, func(o *agent.Options) { o.Tools = []tool.Tool{record} })

	r := newRunnerWithSession(t, "s1")
	res, err := r.Run(context.Background(), ag, testKey("s1"), "go")
	assert.NoError(t, err)

	arts, err := r.Artifacts().List(res.RunID)
	assert.NoError(t, err)
	assert.Len(t, arts, 1)
	assert.Equal(t, "cell", arts[0].Keyword)
}

func TestRun_UsesCustomSessionStore(t *testing.T) {
	store := session.NewInMemoryStore()
	r := New(func(o *Options) { o.SessionStore = store })
	assert.Equal(t, core.SessionStore(store), r.Sessions())
}
