package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// -------------------- Turn Tests --------------------

func TestNewUserTurn(t *testing.T) {
	turn := NewUserTurn("run1", "hello")

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, "run1", turn.RunID)
	assert.Equal(t, RoleUser, turn.Author)
	assert.Equal(t, RoleUser, turn.Content.Role)
	assert.Equal(t, "hello", turn.Text())
	assert.False(t, turn.IsFinal())
}

func TestAssistantTurn_Final(t *testing.T) {
	content := Content{Parts: []Part{TextPart{Text: "done"}}}
	turn := NewAssistantTurn("run1", "writer", content)

	assert.Equal(t, RoleAssistant, turn.Content.Role)
	assert.Equal(t, "writer", turn.Author)
	assert.True(t, turn.IsFinal())
	assert.Empty(t, turn.ToolCalls())
}

func TestAssistantTurn_WithToolCalls(t *testing.T) {
	content := Content{Parts: []Part{
		TextPart{Text: "working on it"},
		ToolCallPart{Call: ToolCallRequest{ID: "c1", Name: "generate_image"}},
		ToolCallPart{Call: ToolCallRequest{ID: "c2", Name: "generate_audio"}},
	}}
	turn := NewAssistantTurn("run1", "producer", content)

	calls := turn.ToolCalls()
	assert.Len(t, calls, 2)
	// Order preserved
	assert.Equal(t, "c1", calls[0].ID)
	assert.Equal(t, "c2", calls[1].ID)
	assert.False(t, turn.IsFinal())
}

func TestToolResultTurn(t *testing.T) {
	res := ToolResult{ID: "c1", Name: "generate_image", Payload: map[string]any{"file": "a.png"}}
	turn := NewToolResultTurn("run1", "producer", res)

	assert.Equal(t, RoleTool, turn.Content.Role)
	results := turn.ToolResults()
	assert.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
	assert.False(t, turn.IsFinal())
}

// -------------------- ToolResult Tests --------------------

func TestToolResult_Failed(t *testing.T) {
	assert.False(t, ToolResult{Payload: 42}.Failed())
	assert.True(t, ToolResult{Error: "boom"}.Failed())
}

func TestToolResult_Serialize(t *testing.T) {
	res := ToolResult{ID: "c1", Name: "sum", Payload: 5.0}
	assert.JSONEq(t, `{"id":"c1","name":"sum","payload":5}`, res.Serialize())

	// Unserializable payloads degrade to a valid JSON error object.
	bad := ToolResult{Name: "bad", Payload: func() {}}
	assert.JSONEq(t, `{"error":"unserializable tool result"}`, bad.Serialize())
}

// -------------------- Session Tests --------------------

func TestSessionKey_String(t *testing.T) {
	key := SessionKey{AppID: "app", UserID: "u1", SessionID: "s1"}
	assert.Equal(t, "app/u1/s1", key.String())
}

func TestSession_AppendOnly(t *testing.T) {
	sess := NewSession(SessionKey{AppID: "app", UserID: "u1", SessionID: "s1"})
	sess.AddTurn(NewUserTurn("run1", "first"))
	sess.AddTurn(NewUserTurn("run1", "second"))

	turns := sess.Turns()
	assert.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Text())
	assert.Equal(t, "second", turns[1].Text())

	// Mutating the returned slice must not affect the transcript.
	turns[0] = NewUserTurn("run2", "mutated")
	assert.Equal(t, "first", sess.Turns()[0].Text())
}

func TestSession_ConversationFiltersRoles(t *testing.T) {
	sess := NewSession(SessionKey{AppID: "app", UserID: "u1", SessionID: "s1"})
	sess.AddTurn(NewUserTurn("run1", "question"))

	system := NewTurn("run1", RoleSystem)
	system.Content = Content{Role: RoleSystem, Parts: []Part{TextPart{Text: "instruction"}}}
	sess.AddTurn(system)

	sess.AddTurn(NewAssistantTurn("run1", "writer", Content{Parts: []Part{TextPart{Text: "answer"}}}))

	conv := sess.Conversation()
	assert.Len(t, conv, 2)
	assert.Equal(t, RoleUser, conv[0].Content.Role)
	assert.Equal(t, RoleAssistant, conv[1].Content.Role)
}

func TestSession_Clone(t *testing.T) {
	sess := NewSession(SessionKey{AppID: "app", UserID: "u1", SessionID: "s1"})
	sess.AddTurn(NewUserTurn("run1", "original"))

	clone := sess.Clone()
	clone.AddTurn(NewUserTurn("run1", "diverged"))

	assert.Equal(t, 1, sess.Len())
	assert.Equal(t, 2, clone.Len())
}

// -------------------- ToolContext Tests --------------------

type recordingStore struct {
	saved map[string][]Artifact
}

func (s *recordingStore) Save(runID string, a Artifact) error {
	if s.saved == nil {
		s.saved = make(map[string][]Artifact)
	}
	s.saved[runID] = append(s.saved[runID], a)
	return nil
}

func (s *recordingStore) List(runID string) ([]Artifact, error) { return s.saved[runID], nil }

func TestToolContext_RecordArtifact(t *testing.T) {
	store := &recordingStore{}
	tc := NewToolContext(t.Context(), "run1", "c1", nil, store)

	err := tc.RecordArtifact(Artifact{Keyword: "mitochondria", Tool: "generate_image"})
	assert.NoError(t, err)

	arts := store.saved["run1"]
	assert.Len(t, arts, 1)
	assert.NotEmpty(t, arts[0].ID)
	assert.False(t, arts[0].CreatedAt.IsZero())
	assert.Equal(t, "mitochondria", arts[0].Keyword)
}

func TestToolContext_NoStoreIsNoOp(t *testing.T) {
	tc := NewToolContext(t.Context(), "run1", "c1", nil, nil)
	assert.NoError(t, tc.RecordArtifact(Artifact{Tool: "generate_image"}))
}
