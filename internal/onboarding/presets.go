package onboarding

import "strconv"

// Preset is a named colour scheme offered during design.
type Preset struct {
	Name       string
	Background string
	Primary    string
	Accent     string
}

var bookPresets = []Preset{
	{"스카이", "#FFFFFF", "#6C9AC4", "#B4D4EC"},
	{"파스텔", "#FFFCF9", "#B5E3F0", "#FFB8CC"},
	{"핑크", "#FFF5F8", "#F19CB6", "#C9184A"},
	{"다크", "#2D2D2D", "#4A4A4A", "#E8E8E8"},
	{"화이트", "#FFFFFF", "#2D2D2D", "#FF758C"},
	{"보라", "#F8F5FF", "#B97FE7", "#5A189A"},
	{"그린", "#F5FBF7", "#66C497", "#2D6A4F"},
	{"레몬", "#FFFEF5", "#FCD34D", "#F59E0B"},
}

var todoPresets = []Preset{
	{"파스텔", "#FFFCF9", "#B5E3F0", "#FFB8CC"},
	{"핑크", "#FFF5F8", "#F19CB6", "#C9184A"},
	{"다크", "#2D2D2D", "#4A4A4A", "#E8E8E8"},
	{"화이트", "#FFFFFF", "#2D2D2D", "#FF758C"},
	{"보라", "#F8F5FF", "#B97FE7", "#5A189A"},
	{"그린", "#F5FBF7", "#66C497", "#2D6A4F"},
	{"블루", "#F5FAFF", "#5FA3EE", "#1E3A8A"},
	{"레몬", "#FFFEF5", "#FCD34D", "#F59E0B"},
}

// Presets returns the presets offered for a widget kind.
func Presets(k Kind) []Preset {
	if k == KindTodo {
		return todoPresets
	}
	return bookPresets
}

// Font families and checkbox styles a widget may use.
var (
	FontFamilies   = []string{"Galmuri11", "Pretendard", "Corbel"}
	CheckboxStyles = []string{"circle", "heart"}
)

// ContrastColor returns a dark font colour for light backgrounds and a
// light one otherwise, using perceived brightness.
func ContrastColor(hex string) string {
	if len(hex) == 7 && hex[0] == '#' {
		hex = hex[1:]
	}
	channel := func(i int) float64 {
		if len(hex) < i+2 {
			return 0
		}
		v, _ := strconv.ParseUint(hex[i:i+2], 16, 8)
		return float64(v)
	}
	brightness := (channel(0)*299 + channel(2)*587 + channel(4)*114) / 1000
	if brightness > 128 {
		return "#2D3748"
	}
	return "#F7FAFC"
}
