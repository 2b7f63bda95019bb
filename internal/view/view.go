// Package view turns session snapshots into what the page draws and pushes
// every redraw to connected clients.
package view

import (
	"time"

	"github.com/zhouzirui/moodmate/backend/internal/analysis/mood"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
)

// Palette 是主题对应的气泡颜色。
type Palette struct {
	Border string `json:"border"`
	Text   string `json:"text"`
}

// PaletteFor returns bubble colors for theme.
func PaletteFor(theme chat.Theme) Palette {
	if theme == chat.ThemeLight {
		return Palette{Border: "black", Text: "black"}
	}
	return Palette{Border: "white", Text: "white"}
}

// Bubble is one rendered chat message.
type Bubble struct {
	Sender string `json:"sender"`
	Glyph  string `json:"glyph"`
	Align  string `json:"align"`
	Text   string `json:"text"`
}

// View is a full render of the current session.
type View struct {
	Title      string       `json:"title"`
	Tagline    string       `json:"tagline"`
	Icon       string       `json:"icon"`
	Thinking   string       `json:"thinking"`
	Session    chat.Session `json:"session"`
	Bubbles    []Bubble     `json:"bubbles"`
	Palette    Palette      `json:"palette"`
	Mood       mood.Chart   `json:"mood"`
	RenderedAt time.Time    `json:"renderedAt"`
}

// Build renders session with the given persona and chart.
func Build(p persona.Persona, session chat.Session, chart mood.Chart) View {
	bubbles := make([]Bubble, 0, len(session.Transcript)*2)
	for _, turn := range session.Transcript {
		bubbles = append(bubbles,
			Bubble{Sender: "user", Glyph: p.UserGlyph, Align: "flex-end", Text: turn.UserText},
			Bubble{Sender: "bot", Glyph: p.BotGlyph, Align: "flex-start", Text: turn.BotText},
		)
	}

	return View{
		Title:      p.Name,
		Tagline:    p.Tagline,
		Icon:       p.Icon,
		Thinking:   p.Thinking,
		Session:    session,
		Bubbles:    bubbles,
		Palette:    PaletteFor(session.Theme),
		Mood:       chart,
		RenderedAt: time.Now().UTC(),
	}
}
