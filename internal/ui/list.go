package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lenavs/internal/models"
)

var _ list.Item = projectItem{}

// projectItem wraps [models.Project] to implement [list.Item].
type projectItem struct {
	project *models.Project
}

func (i projectItem) FilterValue() string { return i.project.Name }
func (i projectItem) Title() string {
	return fmt.Sprintf("#%d %s", i.project.Sequence(), i.project.Name)
}
func (i projectItem) Description() string {
	desc := fmt.Sprintf("%d stanzas • %s • %s audio", len(i.project.Stanzas), i.project.VideoFormat, i.project.AudioType)
	if !i.project.Media.HasAudio() {
		desc += " • no audio uploaded"
	}
	return desc
}
