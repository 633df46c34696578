package generation

import (
	"fmt"
	"strings"
)

var roomTypeLabels = map[string]string{
	"living_room": "living room",
	"bedroom":     "bedroom",
	"kitchen":     "kitchen",
	"bathroom":    "bathroom",
	"dining_room": "dining room",
	"office":      "home office",
	"kids_room":   "kids room",
	"hallway":     "hallway",
	"other":       "room",
}

var styleLabels = map[string]string{
	"modern":       "modern",
	"minimalist":   "minimalist",
	"scandinavian": "scandinavian",
	"industrial":   "industrial",
	"bohemian":     "bohemian",
	"mid-century":  "mid-century modern",
	"traditional":  "traditional",
	"rustic":       "rustic",
	"luxury":       "luxury",
}

// BuildPrompt renders the text prompt sent with the room photo.
func BuildPrompt(style, roomType string, description *string) string {
	styleLabel, ok := styleLabels[style]
	if !ok {
		styleLabel = "contemporary"
	}
	roomLabel, ok := roomTypeLabels[roomType]
	if !ok {
		roomLabel = "room"
	}

	prompt := fmt.Sprintf("Interior design in %s style for a %s", styleLabel, roomLabel)
	if description != nil {
		if d := strings.TrimSpace(*description); d != "" {
			prompt += ". " + d
		}
	}
	return prompt
}

// IsKnownRoomType and IsKnownStyle back request validation.
func IsKnownRoomType(roomType string) bool {
	_, ok := roomTypeLabels[roomType]
	return ok
}

func IsKnownStyle(style string) bool {
	_, ok := styleLabels[style]
	return ok
}
