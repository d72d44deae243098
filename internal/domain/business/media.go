package business

import "fmt"

// MediaKind names a media slot.
type MediaKind string

// Media slots.
const (
	MediaLogo    MediaKind = "logo"
	MediaCover   MediaKind = "cover"
	MediaProfile MediaKind = "profile"
	MediaStory   MediaKind = "story"
)

// MaxStories bounds the story list.
const MaxStories = 10

// ParseMediaKind validates a media slot name.
func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(s); k {
	case MediaLogo, MediaCover, MediaProfile, MediaStory:
		return k, nil
	default:
		return "", invalid("unknown media kind %q", s)
	}
}

// With places key into the kind slot. It returns the updated media and the
// key it displaced, if any. Stories append; the oldest is displaced once
// MaxStories is reached.
func (m Media) With(kind MediaKind, key string) (Media, string, error) {
	var displaced string
	switch kind {
	case MediaLogo:
		displaced, m.Logo = m.Logo, key
	case MediaCover:
		displaced, m.Cover = m.Cover, key
	case MediaProfile:
		displaced, m.Profile = m.Profile, key
	case MediaStory:
		stories := append([]string(nil), m.Stories...)
		if len(stories) >= MaxStories {
			displaced, stories = stories[0], stories[1:]
		}
		m.Stories = append(stories, key)
	default:
		return m, "", fmt.Errorf("media kind %q: %w", kind, invalid("unknown media kind"))
	}
	return m, displaced, nil
}

// Without removes every reference to key.
func (m Media) Without(key string) Media {
	if m.Logo == key {
		m.Logo = ""
	}
	if m.Cover == key {
		m.Cover = ""
	}
	if m.Profile == key {
		m.Profile = ""
	}
	stories := make([]string, 0, len(m.Stories))
	for _, s := range m.Stories {
		if s != key {
			stories = append(stories, s)
		}
	}
	if len(stories) == 0 {
		stories = nil
	}
	m.Stories = stories
	return m
}
