package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/lenavs/internal/shared"
)

// AudioType selects which uploaded track is rendered into the video.
type AudioType string

const (
	AudioOriginal     AudioType = "original"
	AudioInstrumental AudioType = "instrumental"
)

// MediaKind is the multipart field name the backend expects for each upload.
type MediaKind string

const (
	MediaOriginalAudio     MediaKind = "musicaOriginal"
	MediaInstrumentalAudio MediaKind = "musicaInstrumental"
	MediaVideo             MediaKind = "video"
	MediaImage             MediaKind = "imagem"
)

// ParseMediaKind accepts either the backend field name or a friendly alias.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(s) {
	case "musicaoriginal", "original", "audio":
		return MediaOriginalAudio, nil
	case "musicainstrumental", "instrumental", "playback":
		return MediaInstrumentalAudio, nil
	case "video":
		return MediaVideo, nil
	case "imagem", "image":
		return MediaImage, nil
	default:
		return "", fmt.Errorf("%w: unknown media kind %q", shared.ErrInvalidArgument, s)
	}
}

var videoFormats = map[string]bool{"mp4": true, "avi": true, "mov": true, "mkv": true}

// MediaFiles holds backend storage paths of uploaded media.
type MediaFiles struct {
	OriginalAudio     string `json:"musicaOriginal,omitempty"`
	InstrumentalAudio string `json:"musicaInstrumental,omitempty"`
	Video             string `json:"video,omitempty"`
	Image             string `json:"imagem,omitempty"`
}

// Set stores path under kind.
func (m *MediaFiles) Set(kind MediaKind, path string) {
	switch kind {
	case MediaOriginalAudio:
		m.OriginalAudio = path
	case MediaInstrumentalAudio:
		m.InstrumentalAudio = path
	case MediaVideo:
		m.Video = path
	case MediaImage:
		m.Image = path
	}
}

// HasAudio reports whether any audio track has been uploaded.
func (m MediaFiles) HasAudio() bool {
	return m.OriginalAudio != "" || m.InstrumentalAudio != ""
}

// Background returns the background type and path: video wins over image, color is the fallback.
func (m MediaFiles) Background() (string, string) {
	switch {
	case m.Video != "":
		return "video", m.Video
	case m.Image != "":
		return "image", m.Image
	default:
		return "color", ""
	}
}

// Stanza is one time-aligned block of lyrics with its styling.
type Stanza struct {
	ID                 int     `json:"id"`
	Text               string  `json:"text"`
	StartTime          string  `json:"startTime"`
	EndTime            string  `json:"endTime"`
	FontSize           int     `json:"fontSize"`
	FontFamily         string  `json:"fontFamily"`
	Color              string  `json:"color"`
	OutlineColor       string  `json:"outlineColor"`
	Bold               bool    `json:"bold"`
	Italic             bool    `json:"italic"`
	Underline          bool    `json:"underline"`
	Transition         string  `json:"transition"`
	TransitionDuration float64 `json:"transitionDuration"`
	Alignment          string  `json:"alignment"`
}

// NewStanza returns a stanza with the editor's default styling.
func NewStanza(id int, text string) Stanza {
	return Stanza{
		ID:                 id,
		Text:               text,
		StartTime:          "00:00",
		EndTime:            "00:00",
		FontSize:           32,
		FontFamily:         "Montserrat",
		Color:              "#FFFFFF",
		OutlineColor:       "#000000",
		Transition:         "fade",
		TransitionDuration: 1,
		Alignment:          "center",
	}
}

// NewStanzas wraps processed lyric blocks into default-styled stanzas numbered from 0.
func NewStanzas(texts []string) []Stanza {
	stanzas := make([]Stanza, 0, len(texts))
	for i, text := range texts {
		stanzas = append(stanzas, NewStanza(i, text))
	}
	return stanzas
}

// Bounds returns the start and end of the stanza in seconds.
func (s Stanza) Bounds() (int, int, error) {
	start, err := shared.ParseTimestamp(s.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("stanza %d start: %w", s.ID, err)
	}
	end, err := shared.ParseTimestamp(s.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("stanza %d end: %w", s.ID, err)
	}
	return start, end, nil
}

// Validate checks timing and styling constraints.
func (s Stanza) Validate() error {
	start, end, err := s.Bounds()
	if err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("%w: stanza %d ends (%s) before it starts (%s)", shared.ErrInvalidInput, s.ID, s.EndTime, s.StartTime)
	}
	if s.FontSize <= 0 {
		return fmt.Errorf("%w: stanza %d font size must be positive", shared.ErrInvalidInput, s.ID)
	}
	switch s.Alignment {
	case "left", "center", "right":
	default:
		return fmt.Errorf("%w: stanza %d alignment %q", shared.ErrInvalidInput, s.ID, s.Alignment)
	}
	return nil
}

// Project is an editor project: media, styling and stanzas awaiting export.
type Project struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time

	UserID          string
	Name            string
	AudioType       AudioType
	VideoFormat     string
	BackgroundColor string
	Media           MediaFiles
	Stanzas         []Stanza
}

// NewProject creates a project with editor defaults.
func NewProject(sequence int, userID, name string) *Project {
	now := time.Now()
	return &Project{
		sequence:        sequence,
		createdAt:       now,
		updatedAt:       now,
		UserID:          userID,
		Name:            name,
		AudioType:       AudioOriginal,
		VideoFormat:     "mp4",
		BackgroundColor: "#000000",
		Stanzas:         []Stanza{},
	}
}

func (p *Project) ID() string { return p.id }

func (p *Project) Sequence() int { return p.sequence }

func (p *Project) CreatedAt() time.Time { return p.createdAt }

func (p *Project) UpdatedAt() time.Time { return p.updatedAt }

func (p *Project) DeletedAt() *time.Time { return p.deletedAt }

func (p *Project) SetID(id string) { p.id = id }

func (p *Project) SetSequence(seq int) { p.sequence = seq }

func (p *Project) SetUpdatedAt(t time.Time) { p.updatedAt = t }

// Hydrate restores persisted metadata; repositories use it when scanning rows.
func (p *Project) Hydrate(id string, sequence int, createdAt, updatedAt time.Time, deletedAt *time.Time) {
	p.id = id
	p.sequence = sequence
	p.createdAt = createdAt
	p.updatedAt = updatedAt
	p.deletedAt = deletedAt
}

// Touch assigns the ID on first save and bumps the update time.
func (p *Project) Touch(id string, now time.Time) {
	if p.id == "" {
		p.id = id
	}
	if p.createdAt.IsZero() {
		p.createdAt = now
	}
	p.updatedAt = now
}

// Validate checks the project and every stanza.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name is required", shared.ErrInvalidInput)
	}
	if !videoFormats[p.VideoFormat] {
		return fmt.Errorf("%w: unsupported video format %q", shared.ErrInvalidInput, p.VideoFormat)
	}
	if p.AudioType != AudioOriginal && p.AudioType != AudioInstrumental {
		return fmt.Errorf("%w: unsupported audio type %q", shared.ErrInvalidInput, p.AudioType)
	}
	for _, s := range p.Stanzas {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AudioPath returns the storage path of the selected audio track.
func (p *Project) AudioPath() string {
	if p.AudioType == AudioInstrumental {
		return p.Media.InstrumentalAudio
	}
	return p.Media.OriginalAudio
}

// AddStanza appends a default stanza with the next free ID.
func (p *Project) AddStanza(text string) Stanza {
	next := 0
	for _, s := range p.Stanzas {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	s := NewStanza(next, text)
	p.Stanzas = append(p.Stanzas, s)
	return s
}

// UpdateStanza applies fn to the stanza with the given ID.
func (p *Project) UpdateStanza(id int, fn func(*Stanza)) error {
	for i := range p.Stanzas {
		if p.Stanzas[i].ID == id {
			fn(&p.Stanzas[i])
			return p.Stanzas[i].Validate()
		}
	}
	return fmt.Errorf("%w: %d", shared.ErrStanzaNotFound, id)
}

// RemoveStanza deletes the stanza with the given ID.
func (p *Project) RemoveStanza(id int) error {
	for i := range p.Stanzas {
		if p.Stanzas[i].ID == id {
			p.Stanzas = append(p.Stanzas[:i], p.Stanzas[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", shared.ErrStanzaNotFound, id)
}
