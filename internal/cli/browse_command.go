package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"zipshelf/internal/archive"
	"zipshelf/internal/jobs"
	"zipshelf/internal/model"
)

type browseMode int

const (
	browseModeTable browseMode = iota
	browseModeEditCache
)

type browseModel struct {
	svc       *jobs.Service
	records   []model.JobRecord
	cachePath string
	table     table.Model
	input     textinput.Model
	bar       progress.Model
	mode      browseMode
	width     int
	height    int

	running       string
	percent       int
	events        chan tea.Msg
	statusMessage string
	fatalErr      error
}

type browseLoadedMsg struct {
	records   []model.JobRecord
	cachePath string
	err       error
}

type browseSaveMsg struct {
	message string
	err     error
}

func runBrowse(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() || !stdoutIsTTY() {
		return errors.New("browse requires an interactive terminal (TTY)")
	}

	p := tea.NewProgram(newBrowseModel(stores.serviceWithLogger(stores.tuiLogger())), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(browseModel); ok {
		return fm.fatalErr
	}
	return nil
}

func newBrowseModel(svc *jobs.Service) browseModel {
	t := table.New(
		table.WithColumns(browseColumns(100)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = selStyle
	t.SetStyles(styles)

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Width = 60
	input.Placeholder = "/path/to/cache"

	return browseModel{
		svc:   svc,
		table: t,
		input: input,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		mode:  browseModeTable,
	}
}

func browseColumns(width int) []table.Column {
	nameW := 24
	timeW := len(model.CompletionTimeLayout)
	sourceW := maxInt(width-nameW-timeW-10, 12)
	return []table.Column{
		{Title: "Archive", Width: nameW},
		{Title: "Completed", Width: timeW},
		{Title: "Source", Width: sourceW},
	}
}

func browseRows(records []model.JobRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, table.Row{
			r.OutputName,
			defaultIfEmpty(r.CompletedAtText(), "-"),
			defaultIfEmpty(r.SourcePath, "(not recorded)"),
		})
	}
	return rows
}

func (m browseModel) Init() tea.Cmd {
	return loadHistoryCmd(m.svc)
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(browseColumns(m.width - 4))
		m.table.SetWidth(maxInt(m.width-4, 20))
		m.table.SetHeight(clampInt(m.height-12, 4, 40))
		m.input.Width = clampInt(m.width-8, 20, 120)
		m.bar.Width = clampInt(m.width/3, 10, 60)
		return m, nil
	case browseLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.records = msg.records
		m.cachePath = msg.cachePath
		m.table.SetRows(browseRows(m.records))
		if m.table.Cursor() >= len(m.records) {
			m.table.SetCursor(maxInt(len(m.records)-1, 0))
		}
		return m, nil
	case browseSaveMsg:
		m.mode = browseModeTable
		m.input.Blur()
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		return m, loadHistoryCmd(m.svc)
	case archiveEventMsg:
		if msg.Percent > m.percent {
			m.percent = msg.Percent
		}
		return m, waitForArchiveMsg(m.events)
	case archiveDoneMsg:
		name := m.running
		m.running = ""
		m.events = nil
		switch {
		case errors.Is(msg.err, jobs.ErrBusy):
			m.statusMessage = "warning: " + msg.err.Error()
		case msg.err != nil:
			m.statusMessage = "error: " + msg.err.Error()
		default:
			m.statusMessage = fmt.Sprintf("recompressed %s: %d files, %s", name, msg.outcome.Result.Job.ProcessedFileCount, formatBytesIEC(msg.outcome.Result.CompressedBytes))
		}
		return m, loadHistoryCmd(m.svc)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch m.mode {
	case browseModeEditCache:
		return m.updateEditCache(keyMsg)
	default:
		return m.updateTable(keyMsg)
	}
}

func (m browseModel) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.running != "" {
			m.statusMessage = "warning: " + m.running + " is still being written; wait for it or press ctrl+c"
			return m, nil
		}
		return m, tea.Quit
	case "r":
		return m, loadHistoryCmd(m.svc)
	case "c":
		m.mode = browseModeEditCache
		m.input.SetValue(m.cachePath)
		m.input.CursorEnd()
		m.statusMessage = ""
		return m, m.input.Focus()
	case "enter":
		return m.startRecompress()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m browseModel) startRecompress() (tea.Model, tea.Cmd) {
	if active, busy := m.svc.Active(); busy || m.running != "" {
		m.statusMessage = "warning: an archive is already in progress: " + defaultIfEmpty(m.running, active)
		return m, nil
	}
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		m.statusMessage = "history is empty; archive a directory with: zipshelf zip <dir>"
		return m, nil
	}
	rec := m.records[idx]
	if strings.TrimSpace(rec.SourcePath) == "" {
		m.statusMessage = "error: " + rec.OutputName + " has no recorded source; archive it again with: zipshelf zip <dir>"
		return m, nil
	}

	m.running = rec.OutputName
	m.percent = 0
	m.events = make(chan tea.Msg, 16)
	m.statusMessage = "recompressing " + rec.OutputName + "..."
	return m, tea.Batch(recompressCmd(m.svc, rec.OutputName, m.events), waitForArchiveMsg(m.events))
}

func (m browseModel) updateEditCache(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.mode = browseModeTable
		m.input.Blur()
		m.statusMessage = "cache path unchanged"
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			m.statusMessage = "error: cache path cannot be empty"
			return m, nil
		}
		return m, saveCachePathCmd(m.svc, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m browseModel) View() string {
	if m.fatalErr != nil {
		return errorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	width := m.width
	if width <= 0 {
		width = 100
	}

	header := titleStyle.Render("zipshelf browse") + "\n" +
		mutedStyle.Render("up/down: move | enter: recompress | c: cache path | r: reload | q: quit")
	cache := kv("cache", defaultIfEmpty(m.cachePath, "(not set)"))
	body := panelStyle.Width(maxInt(width-2, 20)).Render(cache + "\n\n" + m.table.View())

	parts := []string{header, body}
	if m.mode == browseModeEditCache {
		edit := "Cache Path\n" + mutedStyle.Render("Directory that receives new archives") + "\n" + m.input.View()
		parts = append(parts, panelStyle.Width(maxInt(width-2, 20)).Render(edit))
	}
	if m.running != "" {
		parts = append(parts, fmt.Sprintf("%s %3d%%  %s", m.bar.ViewAs(float64(m.percent)/100), m.percent, m.running))
	}
	parts = append(parts, m.renderStatusLine(width))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m browseModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		msg = fmt.Sprintf("%d archives in history", len(m.records))
	}
	style := mutedStyle
	lower := strings.ToLower(msg)
	switch {
	case strings.HasPrefix(lower, "error:"):
		style = errorStyle
	case strings.HasPrefix(lower, "warning:"):
		style = warnStyle
	case strings.HasPrefix(lower, "recompressed"), strings.HasPrefix(lower, "cache path set"):
		style = okStyle
	}
	return style.Width(width).Render(truncateRunes(msg, maxInt(width-2, 10)))
}

func loadHistoryCmd(svc *jobs.Service) tea.Cmd {
	return func() tea.Msg {
		records, err := svc.History()
		if err != nil {
			return browseLoadedMsg{err: err}
		}
		cache, err := svc.Settings().CachePath()
		if err != nil {
			return browseLoadedMsg{err: err}
		}
		return browseLoadedMsg{records: records, cachePath: cache}
	}
}

func saveCachePathCmd(svc *jobs.Service, path string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Settings().SetCachePath(path); err != nil {
			return browseSaveMsg{err: err}
		}
		return browseSaveMsg{message: "cache path set: " + path}
	}
}

// recompressCmd starts the run on its own goroutine; its events and final
// outcome arrive on ch.
func recompressCmd(svc *jobs.Service, name string, ch chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			out, err := svc.Recompress(name, archive.EventObserver(func(ev model.Event) {
				ch <- archiveEventMsg(ev)
			}))
			ch <- archiveDoneMsg{outcome: out, err: err}
		}()
		return nil
	}
}

func waitForArchiveMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}
