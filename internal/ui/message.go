package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lenavs/internal/auth"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgSubscriptionClosed
	MsgProjectsLoaded
	MsgActionDone
	MsgProgressUpdate
	MsgExportComplete
)

type projectsData struct {
	projects []*models.Project
	err      error
}

type actionData struct {
	action string
	err    error
}

type exportData struct {
	result *tasks.ExportResult
	err    error
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(s auth.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: s}
}

func subscriptionClosedMsg() Msg {
	return Msg{kind: MsgSubscriptionClosed}
}

// projectsLoadedMsg is the constructor for [MsgProjectsLoaded]
func projectsLoadedMsg(projects []*models.Project, err error) Msg {
	return Msg{kind: MsgProjectsLoaded, data: projectsData{projects, err}}
}

// actionDoneMsg reports completion of a key-triggered account action (refresh, sign out).
func actionDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionData{action, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.ExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportData{result, err}}
}
