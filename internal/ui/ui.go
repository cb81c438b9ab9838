package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lenavs/internal/auth"
	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DashboardView ViewState = iota
	ProjectListView
	ConfirmView
	ExportView
	ResultView
)

// Account is what the dashboard reads and drives. Satisfied by *auth.Context.
type Account interface {
	Subscribe(ctx context.Context) <-chan auth.Snapshot
	RefreshEntitlement(ctx context.Context) models.Entitlement
	SignOut(ctx context.Context) error
}

// Exporter runs a project export.
type Exporter interface {
	Export(ctx context.Context, progress chan<- tasks.ProgressUpdate, p *models.Project) (*tasks.ExportResult, error)
}

// ProjectLister loads the signed-in user's projects.
type ProjectLister interface {
	List(criteria map[string]any) ([]*models.Project, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	account   Account
	engine    Exporter
	projects  ProjectLister
	snapshots <-chan auth.Snapshot
	snap      auth.Snapshot
	status    string
	width     int
	height    int

	projectList list.Model
	selected    *models.Project

	progress   tasks.ProgressUpdate
	exportWait tea.Cmd
	result     *tasks.ExportResult
	err        error

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a TUI model subscribed to account for the lifetime of ctx.
func NewModel(ctx context.Context, account Account, engine Exporter, projects ProjectLister) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.warn

	return &Model{
		ctx:       ctx,
		view:      DashboardView,
		account:   account,
		engine:    engine,
		projects:  projects,
		snapshots: account.Subscribe(ctx),
		snap:      auth.Snapshot{State: auth.Bootstrapping, Loading: true},
		spinner:   s,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the spinner and the snapshot subscription.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.projectList.Width() == 0 {
			m.projectList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Loading && m.view != ExportView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case DashboardView:
			return m.handleDashboardKeys(msg)
		case ProjectListView:
			return m.handleProjectListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ExportView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshot:
		m.snap = msg.data.(auth.Snapshot)
		if !m.snap.IsAuthenticated && m.view != DashboardView && m.view != ExportView {
			m.view = DashboardView
			m.selected = nil
		}
		return m, m.waitForSnapshot()

	case MsgSubscriptionClosed:
		m.snapshots = nil
		return m, nil

	case MsgProjectsLoaded:
		data := msg.data.(projectsData)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not load projects: %v", data.err))
			return m, nil
		}
		items := make([]list.Item, len(data.projects))
		for i, p := range data.projects {
			items[i] = projectItem{project: p}
		}
		m.projectList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.projectList.Title = "Projects"
		m.projectList.SetSize(m.width-4, m.height-8)
		m.view = ProjectListView
		m.status = ""
		return m, nil

	case MsgActionDone:
		data := msg.data.(actionData)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("%s failed: %v", data.action, data.err))
		} else {
			m.status = styles.help.Render(fmt.Sprintf("%s done", data.action))
		}
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.exportWait

	case MsgExportComplete:
		data := msg.data.(exportData)
		m.result = data.result
		m.err = data.err
		m.exportWait = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ProjectListView:
		return m.renderProjectList()
	case ConfirmView:
		return m.renderConfirm()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return m.renderDashboard()
	}
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case m.snap.Loading:
		return m, nil
	case key.Matches(msg, m.keys.refresh) && m.snap.IsAuthenticated:
		m.status = "Refreshing credits..."
		return m, m.refresh()
	case key.Matches(msg, m.keys.signOut) && m.snap.IsAuthenticated:
		m.status = "Signing out..."
		return m, m.signOut()
	case key.Matches(msg, m.keys.projects) && m.snap.IsAuthenticated:
		return m, m.loadProjects()
	}
	return m, nil
}

func (m *Model) handleProjectListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.projectList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.projectList, cmd = m.projectList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = DashboardView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.projectList.SelectedItem().(projectItem); ok {
			m.selected = item.project
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = ProjectListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = ExportView
		m.progress = tasks.ProgressUpdate{}
		m.exportWait = m.startExport(m.selected)
		return m, tea.Batch(m.spinner.Tick, m.exportWait)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = DashboardView
		m.result = nil
		m.err = nil
		m.selected = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ProjectListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

func (m *Model) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return subscriptionClosedMsg()
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		m.account.RefreshEntitlement(m.ctx)
		return actionDoneMsg("Refresh", nil)
	}
}

func (m *Model) signOut() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg("Sign out", m.account.SignOut(m.ctx))
	}
}

func (m *Model) loadProjects() tea.Cmd {
	userID := m.snap.User.ID
	return func() tea.Msg {
		projects, err := m.projects.List(map[string]any{"user_id": userID})
		return projectsLoadedMsg(projects, err)
	}
}

// startExport runs the export in the background and returns the command that waits for its next message.
// Progress still buffered when the export finishes is dropped.
func (m *Model) startExport(p *models.Project) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan Msg, 1)

	go func() {
		result, err := m.engine.Export(m.ctx, progress, p)
		done <- exportCompleteMsg(result, err)
	}()

	return func() tea.Msg {
		select {
		case msg := <-done:
			return msg
		default:
		}
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m *Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("LenaVS"))
	b.WriteString("\n")

	switch {
	case m.snap.Loading:
		b.WriteString(fmt.Sprintf("%s Restoring session...\n", m.spinner.View()))
	case !m.snap.IsAuthenticated:
		b.WriteString("Not signed in.\n")
		b.WriteString(styles.help.Render("Run `lenavs auth signin` to continue."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderAccount())
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	keys := []key.Binding{m.keys.quit}
	if m.snap.IsAuthenticated && !m.snap.Loading {
		keys = []key.Binding{m.keys.refresh, m.keys.signOut, m.keys.projects, m.keys.quit}
	}
	return fmt.Sprintf("%s\n%s", b.String(), m.help.ShortHelpView(keys))
}

func (m *Model) renderAccount() string {
	who := m.snap.User.Email
	if m.snap.User.Name != "" {
		who = fmt.Sprintf("%s <%s>", m.snap.User.Name, m.snap.User.Email)
	}

	lines := []string{
		fmt.Sprintf("Signed in as %s", who),
		fmt.Sprintf("Plan: %s", styles.badge.Render(strings.ToUpper(string(m.snap.Plan)))),
	}

	e := m.snap.Entitlement()
	switch {
	case e.Unlimited():
		lines = append(lines, styles.ok.Render("Unlimited exports"))
	case e.Credits > 0:
		lines = append(lines, fmt.Sprintf("Credits: %s", styles.ok.Render(fmt.Sprint(e.Credits))))
	default:
		lines = append(lines, styles.warn.Render("Credits: 0. Run `lenavs upgrade` to keep exporting."))
	}
	return styles.box.Render(strings.Join(lines, "\n")) + "\n"
}

func (m *Model) renderProjectList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.projectList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	p := m.selected
	title := styles.title.Render(fmt.Sprintf("Export '%s'?", p.Name))
	info := fmt.Sprintf("Stanzas: %d\nFormat: %s\nAudio: %s\n", len(p.Stanzas), p.VideoFormat, p.AudioType)

	e := m.snap.Entitlement()
	var cost string
	switch {
	case e.Unlimited():
		cost = styles.ok.Render("Included in your plan")
	case e.Credits > 0:
		cost = fmt.Sprintf("Uses 1 of %d credits", e.Credits)
	default:
		cost = styles.warn.Render("No credits left: the export will be refused")
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, info, cost, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting")
	phase := "Starting..."
	if m.progress.Message != "" {
		phase = fmt.Sprintf("%s: %s", m.progress.Phase, m.progress.Message)
	}
	return fmt.Sprintf("%s\n%s %s", title, m.spinner.View(), phase)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		msg := fmt.Sprintf("Export failed: %v", m.err)
		if m.result != nil && m.result.UpgradeRequired {
			msg += "\n\nYou are out of credits. Run `lenavs upgrade` to get more."
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Video ready")
	info := fmt.Sprintf("\n%s\n\nPlan: %s", m.result.VideoURL, m.result.Entitlement)
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
