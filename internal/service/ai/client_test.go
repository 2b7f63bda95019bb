package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
	"github.com/zhouzirui/moodmate/backend/internal/service/llm/groq"
)

type recordingModel struct {
	inputs [][]*schema.Message
	reply  *schema.Message
	err    error
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func (m *recordingModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (m *recordingModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func sessionWithTurns(turns ...[2]string) chat.Session {
	s := chat.NewSession()
	for _, t := range turns {
		s.Transcript = append(s.Transcript, chat.Turn{UserText: t[0], BotText: t[1]})
	}
	return s
}

func TestBuildMessagesInterleavesTranscript(t *testing.T) {
	client := NewClient(&recordingModel{}, persona.MoodMate(), nil)
	session := sessionWithTurns([2]string{"u1", "b1"}, [2]string{"u2", "b2"})

	messages, err := client.BuildMessages(context.Background(), session, "u3")
	require.NoError(t, err)
	require.Len(t, messages, 6)

	wantRoles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User, schema.Assistant, schema.User}
	wantContent := []string{"", "u1", "b1", "u2", "b2", "u3"}
	for i, msg := range messages {
		assert.Equal(t, wantRoles[i], msg.Role, "role at %d", i)
		if i > 0 {
			assert.Equal(t, wantContent[i], msg.Content, "content at %d", i)
		}
	}
	assert.Contains(t, messages[0].Content, "You are MoodMate")
}

func TestBuildMessagesEmptyTranscript(t *testing.T) {
	client := NewClient(&recordingModel{}, persona.MoodMate(), nil)

	messages, err := client.BuildMessages(context.Background(), chat.NewSession(), "hello {there}")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, schema.System, messages[0].Role)
	assert.Equal(t, schema.User, messages[1].Role)
	assert.Equal(t, "hello {there}", messages[1].Content)
}

func TestBuildMessagesSubstitutesDisplayName(t *testing.T) {
	client := NewClient(&recordingModel{}, persona.MoodMate(), nil)
	session := chat.NewSession()
	session.DisplayName = "Alex"

	messages, err := client.BuildMessages(context.Background(), session, "hi")
	require.NoError(t, err)
	assert.Contains(t, messages[0].Content, "The user's name is Alex.")
}

func TestGenerateReturnsReply(t *testing.T) {
	fake := &recordingModel{reply: schema.AssistantMessage("so happy for you 🎉", nil)}
	client := NewClient(fake, persona.MoodMate(), nil)

	result := client.Generate(context.Background(), sessionWithTurns([2]string{"u1", "b1"}), "u2")
	require.True(t, result.OK())
	assert.Equal(t, "so happy for you 🎉", result.Reply())
	require.Len(t, fake.inputs, 1)
	assert.Len(t, fake.inputs[0], 4)
}

func TestGenerateAbsorbsFailures(t *testing.T) {
	fake := &recordingModel{err: &groq.StatusError{Code: 503, URL: "https://example.test/chat/completions"}}
	client := NewClient(fake, persona.MoodMate(), nil)

	result := client.Generate(context.Background(), chat.NewSession(), "hi")
	assert.False(t, result.OK())
	assert.Equal(t, KindStatus, result.Kind)
	assert.True(t, strings.HasPrefix(result.Reply(), "⚠️ Error:"))
	assert.Contains(t, result.Reply(), "503 Server Error")
}

func TestGenerateNilReply(t *testing.T) {
	client := NewClient(&recordingModel{}, persona.MoodMate(), nil)

	result := client.Generate(context.Background(), chat.NewSession(), "hi")
	assert.Equal(t, KindEmpty, result.Kind)
	assert.ErrorIs(t, result.Err, ErrEmptyReply)
}

func TestGenerateWithoutModel(t *testing.T) {
	client := NewClient(nil, persona.MoodMate(), nil)

	reply := client.Complete(context.Background(), chat.NewSession(), "hi")
	assert.True(t, strings.HasPrefix(reply, ErrorPrefix))
}

func TestCompleteAgainstHTTP500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(groq.NewClient(groq.Config{APIKey: "k", BaseURL: server.URL}), persona.MoodMate(), nil)

	result := client.Generate(context.Background(), chat.NewSession(), "hi")
	assert.Equal(t, KindStatus, result.Kind)
	assert.Equal(t, "⚠️ Error: 500 Server Error: Internal Server Error for url: "+server.URL+"/chat/completions", result.Reply())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&groq.StatusError{Code: 429}, KindStatus},
		{&groq.DecodeError{Err: errors.New("eof")}, KindDecode},
		{&groq.TransportError{Err: errors.New("refused")}, KindTransport},
		{context.DeadlineExceeded, KindTransport},
		{groq.ErrNoChoices, KindEmpty},
		{groq.ErrNoContent, KindEmpty},
		{errors.New("ark: quota exceeded"), KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "classify(%v)", tc.err)
	}
}
