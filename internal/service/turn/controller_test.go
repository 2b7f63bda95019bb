package turn_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
	"github.com/zhouzirui/moodmate/backend/internal/service/ai"
	"github.com/zhouzirui/moodmate/backend/internal/service/llm/groq"
	"github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/service/turn"
)

// echoModel replies "re: <last user message>" and records every request.
type echoModel struct {
	mu     sync.Mutex
	inputs [][]*schema.Message
}

func (m *echoModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	return schema.AssistantMessage("re: "+input[len(input)-1].Content, nil), nil
}

func (m *echoModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (m *echoModel) BindTools(_ []*schema.ToolInfo) error { return nil }

type recordingRenderer struct {
	mu        sync.Mutex
	snapshots []chat.Session
	states    []turn.State
	ctrl      *turn.Controller
}

func (r *recordingRenderer) Redraw(_ context.Context, s chat.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	if r.ctrl != nil {
		r.states = append(r.states, r.ctrl.State())
	}
}

func newController(t *testing.T, chatModel model.ChatModel) (*turn.Controller, *session.Store, *recordingRenderer) {
	t.Helper()
	store := session.NewStore()
	renderer := &recordingRenderer{}
	client := ai.NewClient(chatModel, persona.MoodMate(), nil)
	ctrl := turn.NewController(store, client, renderer, nil)
	renderer.ctrl = ctrl
	return ctrl, store, renderer
}

func TestSubmitCountsNonEmptySubmissions(t *testing.T) {
	ctrl, store, renderer := newController(t, &echoModel{})
	ctx := context.Background()

	inputs := []string{"hi", "", "how are you", "", " ", "bye"}
	accepted := 0
	for _, in := range inputs {
		if _, ok := ctrl.Submit(ctx, in); ok {
			accepted++
		}
	}

	assert.Equal(t, 4, accepted)
	assert.Len(t, store.GetOrInit().Transcript, 4)
	assert.Len(t, renderer.snapshots, 4)
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	ctrl, store, renderer := newController(t, &echoModel{})

	_, ok := ctrl.Submit(context.Background(), "")
	assert.False(t, ok)
	assert.Empty(t, store.GetOrInit().Transcript)
	assert.Empty(t, renderer.snapshots)
	assert.Equal(t, turn.StateIdle, ctrl.State())
}

func TestSubmitAppendsAndRedraws(t *testing.T) {
	ctrl, store, renderer := newController(t, &echoModel{})

	got, ok := ctrl.Submit(context.Background(), "I passed my exam!")
	require.True(t, ok)
	assert.Equal(t, "I passed my exam!", got.UserText)
	assert.Equal(t, "re: I passed my exam!", got.BotText)

	transcript := store.GetOrInit().Transcript
	require.Len(t, transcript, 1)
	assert.Equal(t, got.ID, transcript[0].ID)

	require.Len(t, renderer.snapshots, 1)
	assert.Len(t, renderer.snapshots[0].Transcript, 1)
	assert.Equal(t, []turn.State{turn.StateAppended}, renderer.states)
	assert.Equal(t, turn.StateIdle, ctrl.State())
}

func TestSubmitReplaysPriorTurn(t *testing.T) {
	fake := &echoModel{}
	ctrl, store, _ := newController(t, fake)
	ctx := context.Background()

	ctrl.Submit(ctx, "first")
	ctrl.Submit(ctx, "second")

	require.Len(t, store.GetOrInit().Transcript, 2)
	require.Len(t, fake.inputs, 2)

	second := fake.inputs[1]
	require.Len(t, second, 4)
	assert.Equal(t, schema.System, second[0].Role)
	assert.Equal(t, "first", second[1].Content)
	assert.Equal(t, schema.User, second[1].Role)
	assert.Equal(t, "re: first", second[2].Content)
	assert.Equal(t, schema.Assistant, second[2].Role)
	assert.Equal(t, "second", second[3].Content)
}

func TestSubmitStoresHTTP500AsErrorReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctrl, store, renderer := newController(t, groq.NewClient(groq.Config{APIKey: "k", BaseURL: server.URL}))

	got, ok := ctrl.Submit(context.Background(), "hello?")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got.BotText, "⚠️ Error:"), got.BotText)

	transcript := store.GetOrInit().Transcript
	require.Len(t, transcript, 1)
	assert.Equal(t, got.BotText, transcript[0].BotText)
	assert.Len(t, renderer.snapshots, 1)
}

type blockingCompleter struct {
	entered chan string
	release chan struct{}
	states  chan turn.State
	ctrl    *turn.Controller
}

func (b *blockingCompleter) Generate(_ context.Context, _ chat.Session, userText string) ai.Result {
	b.states <- b.ctrl.State()
	b.entered <- userText
	<-b.release
	return ai.Ok("ok: " + userText)
}

func TestSubmitIsSequential(t *testing.T) {
	store := session.NewStore()
	completer := &blockingCompleter{
		entered: make(chan string, 2),
		release: make(chan struct{}),
		states:  make(chan turn.State, 2),
	}
	ctrl := turn.NewController(store, completer, nil, nil)
	completer.ctrl = ctrl
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctrl.Submit(ctx, "a")
	}()

	require.Equal(t, "a", <-completer.entered)
	assert.Equal(t, turn.StateAwaitingCompletion, <-completer.states)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctrl.Submit(ctx, "b")
	}()

	select {
	case text := <-completer.entered:
		t.Fatalf("second submit %q started before the first finished", text)
	case <-time.After(50 * time.Millisecond):
	}

	completer.release <- struct{}{}
	require.Equal(t, "b", <-completer.entered)
	<-completer.states
	completer.release <- struct{}{}
	wg.Wait()

	transcript := store.GetOrInit().Transcript
	require.Len(t, transcript, 2)
	assert.Equal(t, "a", transcript[0].UserText)
	assert.Equal(t, "ok: a", transcript[0].BotText)
	assert.Equal(t, "b", transcript[1].UserText)
	assert.Equal(t, turn.StateIdle, ctrl.State())
}
