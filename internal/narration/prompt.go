package narration

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	systemMarker = "### System Message"
	userMarker   = "### User Message"
)

//go:embed prompts/voice_route.txt
var defaultVoicePrompt string

// PromptTemplate шаблон запроса для непрерывного режима
type PromptTemplate struct {
	System string
	User   string
}

// PromptValues значения подстановок шаблона
type PromptValues struct {
	Latitude      float64
	Longitude     float64
	PrevLatitude  float64
	PrevLongitude float64
	DistanceM     float64
	Heading       string
}

// ParsePromptTemplate разбирает шаблон на системную и пользовательскую части
func ParsePromptTemplate(text string) (*PromptTemplate, error) {
	system, user, ok := strings.Cut(text, userMarker)
	if !ok {
		return nil, fmt.Errorf("prompt template has no %q section", userMarker)
	}
	system = strings.TrimSpace(strings.Replace(system, systemMarker, "", 1))
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("prompt template has empty user section")
	}
	return &PromptTemplate{System: system, User: user}, nil
}

// DefaultPromptTemplate встроенный шаблон голосовых обновлений
func DefaultPromptTemplate() *PromptTemplate {
	tmpl, err := ParsePromptTemplate(defaultVoicePrompt)
	if err != nil {
		panic(fmt.Sprintf("embedded voice prompt is invalid: %v", err))
	}
	return tmpl
}

// LoadPromptTemplate читает шаблон из файла; пустой путь дает встроенный шаблон
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return DefaultPromptTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	return ParsePromptTemplate(string(data))
}

// Render подставляет значения в пользовательскую часть шаблона
func (t *PromptTemplate) Render(v PromptValues) string {
	r := strings.NewReplacer(
		"{latitude}", formatCoord(v.Latitude),
		"{longitude}", formatCoord(v.Longitude),
		"{prev_latitude}", formatCoord(v.PrevLatitude),
		"{prev_longitude}", formatCoord(v.PrevLongitude),
		"{distance_m}", strconv.FormatFloat(v.DistanceM, 'f', 0, 64),
		"{heading}", v.Heading,
	)
	return r.Replace(t.User)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
