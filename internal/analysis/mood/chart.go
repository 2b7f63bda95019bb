package mood

import (
	"math"
	"math/rand/v2"
)

// Label 表示心情图表中的一种心情。
type Label string

const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Annoyed  Label = "annoyed"
	Confused Label = "confused"
)

// Labels lists the chart bars in display order.
var Labels = []Label{Happy, Sad, Annoyed, Confused}

var captions = map[Label]string{
	Happy:    "Happy 😀",
	Sad:      "Sad 😢",
	Annoyed:  "Annoyed 😤",
	Confused: "Confused 🤔",
}

// Caption returns the bar label shown under the chart.
func (l Label) Caption() string {
	if c, ok := captions[l]; ok {
		return c
	}
	return string(l)
}

// Bar is one column of the mood chart.
type Bar struct {
	Mood       Label  `json:"mood"`
	Caption    string `json:"caption"`
	Percentage int    `json:"percentage"`
}

// Chart is the rendered mood breakdown.
type Chart struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Bars   []Bar  `json:"bars"`
}

// ChartTitle 图表标题。
const ChartTitle = "🧠 Human's Mood"

// FromWeights normalizes non-negative weights into rounded percentages.
// Rounding is half-to-even, so the bars may not add up to exactly 100.
func FromWeights(source string, weights map[Label]float64) Chart {
	total := 0.0
	for _, label := range Labels {
		if w := weights[label]; w > 0 {
			total += w
		}
	}

	bars := make([]Bar, 0, len(Labels))
	for _, label := range Labels {
		pct := 0
		if w := weights[label]; total > 0 && w > 0 {
			pct = int(math.RoundToEven(w / total * 100))
		}
		bars = append(bars, Bar{Mood: label, Caption: label.Caption(), Percentage: pct})
	}

	return Chart{Title: ChartTitle, Source: source, Bars: bars}
}

// Random draws one uniform weight per mood.
func Random(r *rand.Rand) Chart {
	weights := make(map[Label]float64, len(Labels))
	for _, label := range Labels {
		if r != nil {
			weights[label] = r.Float64()
		} else {
			weights[label] = rand.Float64()
		}
	}
	return FromWeights(SourceRandom, weights)
}

const (
	SourceRandom   = "random"
	SourceKeywords = "keywords"
	SourceLLM      = "llm"
)
