// Package turn runs one chat interaction at a time: complete, append, redraw.
package turn

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/service/ai"
)

// State is the controller's position in a submission cycle.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCompletion State = "awaiting_completion"
	StateAppended           State = "appended"
)

// Completer produces a reply for the next turn.
type Completer interface {
	Generate(ctx context.Context, session chat.Session, userText string) ai.Result
}

// SessionStore is the subset of the session store the controller mutates.
type SessionStore interface {
	GetOrInit() chat.Session
	AppendTurn(userText, botText string) chat.Turn
}

// Renderer redraws the whole view from a session snapshot.
type Renderer interface {
	Redraw(ctx context.Context, session chat.Session)
}

// Controller is the only path that appends to the transcript.
type Controller struct {
	store     SessionStore
	completer Completer
	renderer  Renderer
	logger    *log.Logger

	// cycle 串行化整个提交流程
	cycle sync.Mutex

	stateMu sync.RWMutex
	state   State
}

// NewController wires the controller. renderer may be nil.
func NewController(store SessionStore, completer Completer, renderer Renderer, logger *log.Logger) *Controller {
	return &Controller{
		store:     store,
		completer: completer,
		renderer:  renderer,
		logger:    logging.Component(logger, "turn"),
		state:     StateIdle,
	}
}

// State returns the current cycle state.
func (c *Controller) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Submit runs one cycle for userText. Empty input is ignored and reports false.
// A failed completion is still appended, as its formatted error text.
func (c *Controller) Submit(ctx context.Context, userText string) (chat.Turn, bool) {
	if userText == "" {
		return chat.Turn{}, false
	}

	c.cycle.Lock()
	defer c.cycle.Unlock()
	defer c.setState(StateIdle)

	session := c.store.GetOrInit()

	c.setState(StateAwaitingCompletion)
	result := c.completer.Generate(ctx, session, userText)
	if !result.OK() {
		c.logger.Warn("completion failed, storing error reply", "kind", result.Kind, "err", result.Err)
	}

	turn := c.store.AppendTurn(userText, result.Reply())
	c.setState(StateAppended)

	updated := c.store.GetOrInit()
	if c.renderer != nil {
		c.renderer.Redraw(ctx, updated)
	}

	c.logger.Info("turn appended", "turn", turn.ID, "transcript", len(updated.Transcript), "ok", result.OK())
	return turn, true
}

func (c *Controller) setState(state State) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
}
