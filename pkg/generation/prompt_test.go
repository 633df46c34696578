package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	desc := func(s string) *string { return &s }

	tests := []struct {
		name        string
		style       string
		roomType    string
		description *string
		want        string
	}{
		{"Basic", "modern", "living_room", nil, "Interior design in modern style for a living room"},
		{"WithDescription", "scandinavian", "bedroom", desc("  light oak floors "), "Interior design in scandinavian style for a bedroom. light oak floors"},
		{"BlankDescription", "luxury", "office", desc("   "), "Interior design in luxury style for a home office"},
		{"MidCentury", "mid-century", "dining_room", nil, "Interior design in mid-century modern style for a dining room"},
		{"UnknownStyle", "vaporwave", "kitchen", nil, "Interior design in contemporary style for a kitchen"},
		{"UnknownRoom", "rustic", "garage", nil, "Interior design in rustic style for a room"},
		{"OtherRoom", "bohemian", "other", nil, "Interior design in bohemian style for a room"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPrompt(tt.style, tt.roomType, tt.description))
		})
	}
}

func TestKnownLabels(t *testing.T) {
	assert.True(t, IsKnownRoomType("kids_room"))
	assert.False(t, IsKnownRoomType("garage"))
	assert.True(t, IsKnownStyle("industrial"))
	assert.False(t, IsKnownStyle("vaporwave"))
}
