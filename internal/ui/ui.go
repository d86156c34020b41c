package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/common-nighthawk/go-figure"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	DashboardView
	AddView
	FilterView
	ConfirmDeleteView
	ImportView
)

const toastDuration = 4 * time.Second

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastWarning
	toastError
)

type toast struct {
	id    int
	text  string
	level toastLevel
}

// ConnectFunc logs in to env and returns a live session.
type ConnectFunc func(ctx context.Context, env services.Environment, creds services.Credentials) (*services.Session, error)

// Deps are the collaborators the shell calls into.
type Deps struct {
	Config    *shared.Config
	Logger    *log.Logger
	Notifier  *services.Notifier
	Earnings  tasks.EarningsService
	Snapshots tasks.SnapshotStore  // optional
	Recorder  tasks.ImportRecorder // optional
	Connect   ConnectFunc          // defaults to [services.Connect] with Config
}

// importJob is one running import. The coordinator's goroutine owns progress and closes it
// when the run returns; the result follows on done.
type importJob struct {
	progress chan tasks.ProgressUpdate
	done     chan importComplete
	cancel   context.CancelFunc
}

// Model represents the TUI application state.
//
// Every remote call runs inside a [tea.Cmd]. Commands capture the session they were started
// with, so a result arriving after logout or expiry is dropped instead of being applied to a
// new session.
type Model struct {
	ctx    context.Context
	deps   Deps
	logger *log.Logger

	view   ViewState
	width  int
	height int
	keys   keyMap
	help   help.Model

	spinner     spinner.Model
	loading     bool
	loadingText string
	toast       *toast
	toastSeq    int

	login     loginFields
	loginForm *huh.Form
	notice    string
	noticeErr bool

	session     *services.Session
	sync        *tasks.EarningsSync
	coordinator *tasks.ImportCoordinator

	earnings *tasks.EarningsView
	visible  []models.Earning
	table    table.Model
	search   textinput.Model

	add        addFields
	addForm    *huh.Form
	filter     filterFields
	filterForm *huh.Form
	deleteIDs  []string

	importPath   textinput.Model
	job          *importJob
	importBar    progress.Model
	lastUpdate   tasks.ProgressUpdate
	importLog    []string
	importResult *tasks.ImportResult
	importErr    error
}

// NewModel creates a new TUI model with the provided dependencies, starting at the login form.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(io.Discard)
	}
	if deps.Config == nil {
		deps.Config = shared.DefaultConfig()
	}
	if deps.Notifier == nil {
		deps.Notifier = services.NewNotifier(deps.Logger)
	}
	if deps.Earnings == nil {
		deps.Earnings = services.NewEarningsGateway(deps.Logger)
	}
	if deps.Connect == nil {
		cfg, logger := deps.Config, deps.Logger
		deps.Connect = func(ctx context.Context, env services.Environment, creds services.Credentials) (*services.Session, error) {
			return services.Connect(ctx, cfg, env, creds, logger)
		}
	}

	search := textinput.New()
	search.Placeholder = "song id, stake address or memo"
	search.Prompt = "/ "

	importPath := textinput.New()
	importPath.Placeholder = "path/to/earnings.csv"
	importPath.Prompt = "CSV file: "

	m := &Model{
		ctx:        ctx,
		deps:       deps,
		logger:     deps.Logger,
		view:       LoginView,
		keys:       newKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		earnings:   tasks.NewEarningsView(),
		table:      newEarningsTable(),
		search:     search,
		importPath: importPath,
		importBar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
	}

	m.login.email = deps.Config.Defaults.Email
	if env, err := services.ParseEnvironment(deps.Config.Defaults.Environment); err == nil {
		m.login.env = env.Index()
	}
	m.loginForm = newLoginForm(&m.login)

	m.sync = tasks.NewEarningsSync(deps.Earnings, deps.Snapshots, deps.Logger)
	m.coordinator = tasks.NewImportCoordinator(deps.Earnings,
		tasks.WithNotifier(deps.Notifier),
		tasks.WithRecorder(deps.Recorder),
		tasks.WithSnapshots(deps.Snapshots),
		tasks.WithRateLimit(deps.Config.Import.RateLimit),
		tasks.WithImportLogger(deps.Logger),
	)
	return m
}

// Run starts the shell and blocks until it exits. Session events from deps.Notifier are
// forwarded into the program; they must only be raised off the update loop.
func Run(ctx context.Context, deps Deps) error {
	m := NewModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	m.deps.Notifier.Subscribe(services.ObserverFunc(func(e services.Event) {
		p.Send(sessionEventMsg(e))
	}))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the login form.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loginForm.Init(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(msg.Height-12, 3))
		m.importBar.Width = min(max(msg.Width-10, 10), 80)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.importBar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.importBar = b
		}
		return m, cmd

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
	}

	switch m.view {
	case LoginView:
		return m.updateLogin(msg)
	case DashboardView:
		return m.updateDashboard(msg)
	case AddView:
		return m.updateAdd(msg)
	case FilterView:
		return m.updateFilter(msg)
	case ConfirmDeleteView:
		return m.updateConfirmDelete(msg)
	case ImportView:
		return m.updateImport(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoginResult:
		res := msg.data.(loginResult)
		m.loading = false
		if res.err != nil {
			m.setNotice(services.UserMessage(res.err), true)
			m.resetLoginForm()
			return m, m.loginForm.Init()
		}
		m.startSession(res.session)
		return m, m.fetchEarnings()

	case MsgEarningsFetched:
		res := msg.data.(earningsFetched)
		m.loading = false
		if res.err != nil {
			if services.IsSessionExpired(res.err) {
				return m, nil
			}
			return m, m.showToast("Failed to load earnings: "+services.UserMessage(res.err), toastError)
		}
		m.earnings.SetData(res.earnings)
		m.refreshTable()
		return m, nil

	case MsgEarningAdded:
		m.loading = false
		if err, _ := msg.data.(error); err != nil {
			var formErr *tasks.FormError
			if errors.As(err, &formErr) {
				m.view = AddView
				m.addForm = newAddForm(&m.add)
				return m, tea.Batch(m.addForm.Init(), m.showToast(formErr.Message, toastError))
			}
			if services.IsSessionExpired(err) {
				return m, nil
			}
			return m, m.showToast("Failed to add earning: "+services.UserMessage(err), toastError)
		}
		m.add = addFields{}
		return m, tea.Batch(m.showToast("Earning added", toastSuccess), m.fetchEarnings())

	case MsgEarningsDeleted:
		res := msg.data.(struct {
			count int
			err   error
		})
		m.loading = false
		if res.err != nil {
			if services.IsSessionExpired(res.err) {
				return m, nil
			}
			return m, m.showToast("Delete failed: "+services.UserMessage(res.err), toastError)
		}
		m.earnings.DeselectAll()
		return m, tea.Batch(m.showToast(fmt.Sprintf("Deleted %d earnings", res.count), toastSuccess), m.fetchEarnings())

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.lastUpdate = update
		if update.Phase == tasks.ImportRows && update.Step > 0 {
			m.importLog = append(m.importLog, update.Message)
			if len(m.importLog) > 8 {
				m.importLog = m.importLog[len(m.importLog)-8:]
			}
		}
		cmds := []tea.Cmd{m.waitForProgress(m.job)}
		if update.Phase == tasks.ImportRows {
			cmds = append(cmds, m.importBar.SetPercent(update.Fraction()))
		}
		return m, tea.Batch(cmds...)

	case MsgImportComplete:
		return m.finishImport(msg.data.(importComplete))

	case MsgSessionEvent:
		return m.handleSessionEvent(msg.data.(services.Event))

	case MsgToastExpired:
		if m.toast != nil && m.toast.id == msg.data.(int) {
			m.toast = nil
		}
		return m, nil
	}
	return m, nil
}

// handleSessionEvent returns to the login form when the session ends for any reason.
func (m *Model) handleSessionEvent(e services.Event) (tea.Model, tea.Cmd) {
	switch e.Kind {
	case services.SessionExpired:
		m.endSession()
		m.setNotice(fmt.Sprintf("Session expired: %s", e.Reason), true)
	case services.LoggedOut:
		m.endSession()
		m.setNotice("Logged out", false)
	default:
		return m, nil
	}
	m.resetLoginForm()
	return m, m.loginForm.Init()
}

func (m *Model) startSession(s *services.Session) {
	m.session = s
	m.view = DashboardView
	m.notice = ""
	m.earnings = tasks.NewEarningsView()
	m.refreshTable()
}

// endSession drops the session and everything fetched with it. A running import is cancelled
// before its next row; its completion still arrives through waitForProgress.
func (m *Model) endSession() {
	if m.job != nil {
		m.job.cancel()
	}
	m.session = nil
	m.loading = false
	m.view = LoginView
	m.earnings = tasks.NewEarningsView()
	m.visible = nil
	m.table.SetRows(nil)
	m.deleteIDs = nil
	m.add = addFields{}
	m.search.Blur()
	m.search.SetValue("")
}

func (m *Model) resetLoginForm() {
	m.login.password = ""
	m.loginForm = newLoginForm(&m.login)
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		return m, m.quit()
	}

	form, cmd := m.loginForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.loginForm = f
	}

	switch m.loginForm.State {
	case huh.StateCompleted:
		m.loading = true
		m.loadingText = "Logging in..."
		m.notice = ""
		return m, m.doLogin()
	case huh.StateAborted:
		return m, m.quit()
	}
	return m, cmd
}

func (m *Model) updateDashboard(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	if m.search.Focused() {
		switch k.String() {
		case "esc", "enter":
			m.search.Blur()
			m.table.Focus()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.earnings.Search = m.search.Value()
		m.refreshTable()
		return m, cmd
	}

	switch {
	case key.Matches(k, m.keys.quit):
		return m, m.quit()
	case key.Matches(k, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(k, m.keys.search):
		m.table.Blur()
		return m, m.search.Focus()
	case key.Matches(k, m.keys.back):
		if m.earnings.Search != "" {
			m.search.SetValue("")
			m.earnings.Search = ""
			m.refreshTable()
		}
		return m, nil
	case key.Matches(k, m.keys.filter):
		m.filter = filterFields{from: m.earnings.From, to: m.earnings.To}
		m.filterForm = newFilterForm(&m.filter)
		m.view = FilterView
		return m, m.filterForm.Init()
	case key.Matches(k, m.keys.sort):
		m.earnings.Sort = nextSort(m.earnings.Sort)
		m.refreshTable()
		return m, nil
	case key.Matches(k, m.keys.order):
		m.earnings.Descending = !m.earnings.Descending
		m.refreshTable()
		return m, nil
	case key.Matches(k, m.keys.toggle):
		if i := m.table.Cursor(); i >= 0 && i < len(m.visible) {
			m.earnings.Toggle(m.visible[i].Key())
			m.refreshTable()
		}
		return m, nil
	case key.Matches(k, m.keys.selectAll):
		if m.earnings.Selection() == tasks.SelectedAll {
			m.earnings.DeselectAll()
		} else {
			m.earnings.SelectAll()
		}
		m.refreshTable()
		return m, nil
	case key.Matches(k, m.keys.add):
		m.addForm = newAddForm(&m.add)
		m.view = AddView
		return m, m.addForm.Init()
	case key.Matches(k, m.keys.remove):
		ids := m.earnings.SelectedIDs()
		if len(ids) == 0 {
			return m, m.showToast("No earnings selected", toastWarning)
		}
		m.deleteIDs = ids
		m.view = ConfirmDeleteView
		return m, nil
	case key.Matches(k, m.keys.importCSV):
		m.importResult, m.importErr, m.importLog = nil, nil, nil
		m.lastUpdate = tasks.ProgressUpdate{}
		m.view = ImportView
		return m, m.importPath.Focus()
	case key.Matches(k, m.keys.refresh):
		return m, m.fetchEarnings()
	case key.Matches(k, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.view = DashboardView
		return m, nil
	}

	form, cmd := m.addForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.addForm = f
	}

	switch m.addForm.State {
	case huh.StateCompleted:
		m.view = DashboardView
		if err := m.add.validate(); err != nil {
			msg := err.Error()
			var formErr *tasks.FormError
			if errors.As(err, &formErr) {
				msg = formErr.Message
			}
			m.view = AddView
			m.addForm = newAddForm(&m.add)
			return m, tea.Batch(m.addForm.Init(), m.showToast(msg, toastError))
		}
		m.loading = true
		m.loadingText = "Adding earning..."
		return m, m.addEarning(m.add.identifier, m.add.usd)
	case huh.StateAborted:
		m.view = DashboardView
		return m, nil
	}
	return m, cmd
}

func (m *Model) updateFilter(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.view = DashboardView
		return m, nil
	}

	form, cmd := m.filterForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.filterForm = f
	}

	switch m.filterForm.State {
	case huh.StateCompleted:
		m.earnings.From = strings.TrimSpace(m.filter.from)
		m.earnings.To = strings.TrimSpace(m.filter.to)
		m.refreshTable()
		m.view = DashboardView
		return m, nil
	case huh.StateAborted:
		m.view = DashboardView
		return m, nil
	}
	return m, cmd
}

func (m *Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(k, m.keys.yes):
		ids := m.deleteIDs
		m.deleteIDs = nil
		m.view = DashboardView
		m.loading = true
		m.loadingText = fmt.Sprintf("Deleting %d earnings...", len(ids))
		return m, m.deleteEarnings(ids)
	case key.Matches(k, m.keys.no):
		m.deleteIDs = nil
		m.view = DashboardView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateImport(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)

	switch {
	case m.job != nil:
		if ok && k.String() == "esc" {
			m.job.cancel()
			m.loadingText = "Cancelling after the current row..."
		}
		return m, nil

	case m.importResult != nil || m.importErr != nil:
		if ok {
			m.view = DashboardView
			m.importPath.SetValue("")
		}
		return m, nil
	}

	if ok {
		switch k.String() {
		case "esc":
			m.importPath.Blur()
			m.view = DashboardView
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.importPath.Value())
			if path == "" {
				return m, m.showToast("Please enter a CSV file path", toastWarning)
			}
			m.importPath.Blur()
			return m, m.startImport(path)
		}
	}

	var cmd tea.Cmd
	m.importPath, cmd = m.importPath.Update(msg)
	return m, cmd
}

func (m *Model) finishImport(res importComplete) (tea.Model, tea.Cmd) {
	m.job = nil
	m.loading = false
	m.importResult = res.result
	m.importErr = res.err

	var cmds []tea.Cmd
	if res.result != nil && res.result.Earnings != nil && m.session != nil {
		m.earnings.SetData(res.result.Earnings)
		m.refreshTable()
	}

	switch {
	case res.err == nil && res.result != nil:
		text, warn := res.result.Summary()
		level := toastSuccess
		if warn {
			level = toastWarning
		}
		cmds = append(cmds, m.showToast(text, level))
		if res.result.RefreshErr != nil && !services.IsSessionExpired(res.result.RefreshErr) {
			cmds = append(cmds, m.showToast("Failed to refresh earnings: "+services.UserMessage(res.result.RefreshErr), toastError))
		}
	case services.IsSessionExpired(res.err):
		processed := 0
		if res.result != nil {
			processed = res.result.Run.Processed()
		}
		m.setNotice(fmt.Sprintf("Session expired during import after %d rows. Please log in again.", processed), true)
	case errors.Is(res.err, context.Canceled):
		cmds = append(cmds, m.showToast("Import cancelled", toastWarning))
	default:
		cmds = append(cmds, m.showToast("Import failed: "+services.UserMessage(res.err), toastError))
	}

	if m.session == nil {
		m.view = LoginView
	}
	return m, tea.Batch(cmds...)
}

// refreshTable recomputes the visible rows, keeping the cursor in range.
func (m *Model) refreshTable() {
	m.visible = m.earnings.Visible()
	m.table.SetRows(earningRows(m.visible, m.earnings))
	if c := m.table.Cursor(); c >= len(m.visible) && len(m.visible) > 0 {
		m.table.SetCursor(len(m.visible) - 1)
	}
}

func (m *Model) showToast(text string, level toastLevel) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toast = &toast{id: id, text: text, level: level}
	return tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg(id) })
}

func (m *Model) quit() tea.Cmd {
	if m.job != nil {
		m.job.cancel()
	}
	return tea.Quit
}

func (m *Model) doLogin() tea.Cmd {
	ctx, connect, notifier := m.ctx, m.deps.Connect, m.deps.Notifier
	env := services.EnvironmentFromIndex(m.login.env)
	creds := services.Credentials{Email: strings.TrimSpace(m.login.email), Password: m.login.password}

	return func() tea.Msg {
		s, err := connect(ctx, env, creds)
		if err != nil {
			return loginResultMsg(nil, err)
		}
		notifier.LoginSucceeded(s)
		return loginResultMsg(s, nil)
	}
}

func (m *Model) logout() tea.Cmd {
	if m.job != nil {
		m.job.cancel()
	}
	notifier := m.deps.Notifier
	return func() tea.Msg {
		notifier.Logout()
		return nil
	}
}

func (m *Model) fetchEarnings() tea.Cmd {
	if m.session == nil {
		return nil
	}
	m.loading = true
	m.loadingText = "Loading earnings..."

	ctx, s, sync, notifier := m.ctx, m.session, m.sync, m.deps.Notifier
	return func() tea.Msg {
		earnings, err := sync.Refresh(ctx, s)
		if err != nil {
			notifier.Check(s, err)
		}
		return earningsFetchedMsg(earnings, err)
	}
}

func (m *Model) addEarning(identifier, usd string) tea.Cmd {
	ctx, s, sync, notifier := m.ctx, m.session, m.sync, m.deps.Notifier
	return func() tea.Msg {
		err := sync.Add(ctx, s, identifier, usd)
		if err != nil {
			notifier.Check(s, err)
		}
		return earningAddedMsg(err)
	}
}

func (m *Model) deleteEarnings(ids []string) tea.Cmd {
	ctx, s, sync, notifier := m.ctx, m.session, m.sync, m.deps.Notifier
	return func() tea.Msg {
		err := sync.Delete(ctx, s, ids)
		if err != nil {
			notifier.Check(s, err)
		}
		return earningsDeletedMsg(len(ids), err)
	}
}

func (m *Model) startImport(path string) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	job := &importJob{
		progress: make(chan tasks.ProgressUpdate),
		done:     make(chan importComplete, 1),
		cancel:   cancel,
	}
	m.job = job
	m.loading = true
	m.loadingText = "Importing..."

	s, coordinator := m.session, m.coordinator
	go func() {
		defer cancel()
		result, err := coordinator.ImportFile(ctx, s, path, job.progress)
		close(job.progress)
		job.done <- importComplete{result: result, err: err}
	}()

	return tea.Batch(m.waitForProgress(job), m.importBar.SetPercent(0))
}

func (m *Model) waitForProgress(job *importJob) tea.Cmd {
	if job == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-job.progress
		if !ok {
			res := <-job.done
			return importCompleteMsg(res.result, res.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LoginView:
		body = m.renderLogin()
	case DashboardView:
		body = m.renderDashboard()
	case AddView:
		body = m.renderForm("Add Earning", m.addForm)
	case FilterView:
		body = m.renderForm("Filter By Creation Date", m.filterForm)
	case ConfirmDeleteView:
		body = m.renderConfirmDelete()
	case ImportView:
		body = m.renderImport()
	}

	if m.toast != nil {
		body += "\n\n" + toastStyle(m.toast.level).Render(m.toast.text)
	}
	return body
}

func (m *Model) renderLogin() string {
	banner := styles.title.Render(figure.NewFigure("earnx", "", true).String())

	var notice string
	if m.notice != "" {
		style := styles.ok
		if m.noticeErr {
			style = styles.err
		}
		notice = style.Render(m.notice) + "\n\n"
	}

	if m.loading {
		return fmt.Sprintf("%s\n%s%s %s", banner, notice, m.spinner.View(), m.loadingText)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n\n%s", banner, notice, m.loginForm.View(), helpView)
}

func (m *Model) renderDashboard() string {
	env := "-"
	if m.session != nil {
		env = m.session.Environment().String()
	}
	title := styles.title.Render(fmt.Sprintf("Earnings • %s", env))

	status := styles.muted.Render(sortLine(m.earnings))
	if m.loading {
		status = fmt.Sprintf("%s %s", m.spinner.View(), m.loadingText)
	}

	var searchLine string
	if m.search.Focused() || m.earnings.Search != "" {
		searchLine = m.search.View() + "\n"
	}

	totals := styles.ok.Render(totalsLine(m.earnings.Totals(), len(m.earnings.SelectedIDs())))

	var tableView string
	if len(m.visible) == 0 && !m.loading {
		tableView = styles.muted.Render("No earnings to show")
	} else {
		tableView = m.table.View()
	}

	return fmt.Sprintf("%s\n%s\n%s%s\n\n%s\n\n%s", title, status, searchLine, tableView, totals, m.help.View(m.keys))
}

func (m *Model) renderForm(title string, form *huh.Form) string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), form.View(), helpView)
}

func (m *Model) renderConfirmDelete() string {
	title := styles.title.Render(fmt.Sprintf("Delete %d earnings?", len(m.deleteIDs)))

	var ids strings.Builder
	for i, id := range m.deleteIDs {
		if i == 10 {
			fmt.Fprintf(&ids, "  … and %d more\n", len(m.deleteIDs)-10)
			break
		}
		fmt.Fprintf(&ids, "  • %s\n", id)
	}

	warning := styles.warn.Render("This cannot be undone.")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, ids.String(), warning, helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Import Earnings")

	switch {
	case m.job != nil:
		phase := m.lastUpdate.Message
		if phase == "" {
			phase = "Starting..."
		}
		rows := styles.muted.Render(strings.Join(m.importLog, "\n"))
		helpView := m.help.ShortHelpView([]key.Binding{key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))})
		return fmt.Sprintf("%s\n%s %s\n\n%s\n\n%s\n\n%s", title, m.spinner.View(), phase, m.importBar.View(), rows, helpView)

	case m.importResult != nil || m.importErr != nil:
		return fmt.Sprintf("%s\n%s\n\n%s", title, m.renderImportResult(), styles.help.Render("press any key to continue"))
	}

	hint := styles.muted.Render("Two columns: song id or ISRC, USD amount. A header row is detected automatically.")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, m.importPath.View(), hint, helpView)
}

func (m *Model) renderImportResult() string {
	res := m.importResult
	if res == nil {
		return styles.err.Render("Import failed: " + services.UserMessage(m.importErr))
	}

	run := res.Run
	var b strings.Builder
	switch {
	case run.Aborted:
		fmt.Fprintf(&b, "%s\n", styles.err.Render(fmt.Sprintf("Import aborted after %d of %d rows: %s", run.Processed(), run.Total, run.AbortReason)))
	case m.importErr != nil:
		fmt.Fprintf(&b, "%s\n", styles.err.Render("Import failed: "+services.UserMessage(m.importErr)))
	default:
		text, warn := res.Summary()
		style := styles.ok
		if warn {
			style = styles.warn
		}
		fmt.Fprintf(&b, "%s\n", style.Render(text))
	}

	fmt.Fprintf(&b, "\nSucceeded: %d\nFailed: %d\n", run.Succeeded, run.Failed)
	for _, o := range run.Outcomes {
		if !o.Succeeded() {
			fmt.Fprintf(&b, "  • %s (%s): %s\n", o.Row.Identifier, o.Row.USDAmount, o.Result)
		}
	}
	return b.String()
}
