package mood

import (
	"regexp"
	"strings"
	"unicode"
)

var keywordBuckets = map[Label][]string{
	Happy: {
		"开心", "高兴", "快乐", "太好了", "太棒了", "哈哈", "lol", "amazing", "awesome", "great",
		"happy", "glad", "yay", "excited", "love", "thanks", "thank you", "passed", "won", "best day",
	},
	Sad: {
		"难过", "伤心", "失落", "沮丧", "哭", "孤单", "失望", "心碎",
		"sad", "unhappy", "cry", "crying", "depressed", "lonely", "upset", "hurt", "miss", "lost", "tired of",
	},
	Annoyed: {
		"生气", "烦死", "受够了", "气死", "火大", "抓狂",
		"annoyed", "angry", "furious", "mad", "irritated", "hate", "ugh", "pissed", "fed up", "sick of",
	},
	Confused: {
		"不懂", "困惑", "为什么", "怎么办", "搞不清",
		"confused", "don't understand", "dont understand", "not sure", "unsure", "lost on", "how do i", "what should i", "why", "huh",
	},
}

// keywordMatcher 判断文本中是否出现某个关键词。
type keywordMatcher func(normalized string) bool

var keywordMatchers = compileMatchers(keywordBuckets)

// compileMatchers 英文关键词按整词匹配，撇号视为单词的一部分，"won" 不会命中 "won't"。
// 中文没有词边界，仍按子串匹配。
func compileMatchers(buckets map[Label][]string) map[Label][]keywordMatcher {
	matchers := make(map[Label][]keywordMatcher, len(buckets))
	for label, keywords := range buckets {
		for _, word := range keywords {
			matchers[label] = append(matchers[label], newMatcher(word))
		}
	}
	return matchers
}

func newMatcher(word string) keywordMatcher {
	if !isASCII(word) {
		return func(normalized string) bool {
			return strings.Contains(normalized, word)
		}
	}
	re := regexp.MustCompile(`(?:^|[^a-z0-9'])` + regexp.QuoteMeta(word) + `(?:$|[^a-z0-9'])`)
	return re.MatchString
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// Scores counts keyword hits per mood across texts.
func Scores(texts ...string) map[Label]int {
	scores := make(map[Label]int, len(Labels))
	for _, text := range texts {
		normalized := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(text)), "’", "'")
		if normalized == "" {
			continue
		}

		for label, matchers := range keywordMatchers {
			for _, matches := range matchers {
				if matches(normalized) {
					scores[label] += 3
				}
			}
		}

		// 问号倾向困惑，感叹号倾向开心
		if q := strings.Count(text, "?") + strings.Count(text, "？"); q > 0 {
			scores[Confused] += q
		}
		if e := strings.Count(text, "!") + strings.Count(text, "！"); e > 0 {
			scores[Happy] += e
		}
	}
	return scores
}

// Analyze 根据用户消息推断心情分布，没有任何信号时返回 false。
func Analyze(texts ...string) (Chart, bool) {
	scores := Scores(texts...)

	weights := make(map[Label]float64, len(Labels))
	total := 0
	for label, score := range scores {
		weights[label] = float64(score)
		total += score
	}
	if total == 0 {
		return Chart{}, false
	}

	return FromWeights(SourceKeywords, weights), true
}

// Dominant returns the highest bar, preferring earlier labels on ties.
func Dominant(c Chart) (Label, bool) {
	best := -1
	var label Label
	for _, bar := range c.Bars {
		if bar.Percentage > best {
			best = bar.Percentage
			label = bar.Mood
		}
	}
	return label, best > 0
}
