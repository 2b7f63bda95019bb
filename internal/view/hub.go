package view

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/zhouzirui/moodmate/backend/internal/analysis/mood"
	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
)

// ChartSource produces the mood chart for a snapshot.
type ChartSource interface {
	Chart(ctx context.Context, session chat.Session) mood.Chart
}

// Hub renders views and fans redraws out to subscribers.
// Every subscriber sees only the most recent view.
type Hub struct {
	persona persona.Persona
	charts  ChartSource
	logger  *log.Logger

	mu   sync.Mutex
	subs map[string]chan View
}

// NewHub creates a hub. charts may be nil, in which case views carry no chart.
func NewHub(p persona.Persona, charts ChartSource, logger *log.Logger) *Hub {
	return &Hub{
		persona: p,
		charts:  charts,
		logger:  logging.Component(logger, "view"),
		subs:    make(map[string]chan View),
	}
}

// Render builds a view for session without notifying anyone.
func (h *Hub) Render(ctx context.Context, session chat.Session) View {
	var chart mood.Chart
	if h.charts != nil {
		chart = h.charts.Chart(ctx, session)
	}
	return Build(h.persona, session, chart)
}

// Redraw renders session and publishes it to every subscriber.
func (h *Hub) Redraw(ctx context.Context, session chat.Session) {
	h.Publish(h.Render(ctx, session))
}

// Publish delivers v to all subscribers, replacing any view they have not read yet.
func (h *Hub) Publish(v View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}

		// 丢弃过期视图，只保留最新的一帧
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
			h.logger.Warn("dropping redraw for subscriber", "subscriber", id)
		}
	}
	h.logger.Debug("redraw published", "subscribers", len(h.subs), "turns", len(v.Session.Transcript))
}

// Subscribe registers a listener. The returned cancel func must be called once done.
func (h *Hub) Subscribe() (string, <-chan View, func()) {
	id := uuid.NewString()
	ch := make(chan View, 1)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
	return id, ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
