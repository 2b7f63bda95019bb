package chat

import (
	"fmt"
	"strings"
)

// DefaultDisplayName 在用户未填写名字时使用。
const DefaultDisplayName = "User"

// Theme 表示页面配色。
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultTheme 新会话的默认主题。
const DefaultTheme = ThemeDark

// ParseTheme 解析外部输入的主题值。
func ParseTheme(raw string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	default:
		return "", fmt.Errorf("invalid theme %q", raw)
	}
}

// Session captures the single live conversation held by the process.
type Session struct {
	DisplayName string `json:"displayName"`
	Theme       Theme  `json:"theme"`
	Transcript  []Turn `json:"transcript"`
}

// NewSession 返回带默认值的会话。
func NewSession() Session {
	return Session{
		DisplayName: DefaultDisplayName,
		Theme:       DefaultTheme,
		Transcript:  make([]Turn, 0, 16),
	}
}

// Clone returns a copy whose transcript does not alias the receiver's.
func (s Session) Clone() Session {
	cloned := s
	cloned.Transcript = make([]Turn, len(s.Transcript))
	copy(cloned.Transcript, s.Transcript)
	return cloned
}

// NormalizeDisplayName 去除首尾空白，空值回退为 DefaultDisplayName。
func NormalizeDisplayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return DefaultDisplayName
	}
	return name
}
