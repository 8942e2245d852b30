// Package preview shows the face frame buffer in a terminal.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/atomic"
)

const halfBlock = "▀"

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86"))
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Preview receives frames from the face loop and log lines from zerolog and
// renders both with bubbletea.
type Preview struct {
	frames chan *image.RGBA
	logs   chan string
	done   atomic.Bool
}

// New creates a preview. Nothing is drawn until Run.
func New() *Preview {
	return &Preview{
		frames: make(chan *image.RGBA, 1),
		logs:   make(chan string, 100), // Buffered channel to avoid blocking
	}
}

// OnDraw copies frame for the terminal. It never blocks the face loop: a
// frame that has not been shown yet is replaced.
func (p *Preview) OnDraw(frame *image.RGBA) {
	cp := image.NewRGBA(frame.Bounds())
	draw.Draw(cp, cp.Bounds(), frame, frame.Bounds().Min, draw.Src)

	for {
		select {
		case p.frames <- cp:
			return
		default:
		}
		select {
		case <-p.frames:
		default:
		}
	}
}

// Write implements io.Writer so the logger can print above the preview.
func (p *Preview) Write(b []byte) (int, error) {
	if p.done.Load() {
		fmt.Print(string(b))
		return len(b), nil
	}
	select {
	case p.logs <- string(b):
	default:
	}
	return len(b), nil
}

// Run shows the preview until ctx is cancelled or the user quits.
func (p *Preview) Run(ctx context.Context) error {
	_, err := tea.NewProgram(newModel(p), tea.WithContext(ctx)).Run()
	p.done.Store(true)
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// frameMsg carries a new frame into the model.
type frameMsg struct {
	frame *image.RGBA
}

// logMsg carries one log line.
type logMsg struct {
	line string
}

type model struct {
	preview *Preview
	frame   *image.RGBA
	draws   int
}

func newModel(p *Preview) model {
	return model{preview: p}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForFrame, m.waitForLog)
}

func (m model) waitForFrame() tea.Msg {
	return frameMsg{frame: <-m.preview.frames}
}

func (m model) waitForLog() tea.Msg {
	return logMsg{line: strings.TrimSpace(<-m.preview.logs)}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case frameMsg:
		m.frame = msg.frame
		m.draws++
		return m, m.waitForFrame
	case logMsg:
		return m, tea.Sequence(tea.Printf("%s", msg.line), m.waitForLog)
	}
	return m, nil
}

func (m model) View() string {
	if m.frame == nil {
		return hintStyle.Render("waiting for the first frame...")
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		borderStyle.Render(Render(m.frame)),
		hintStyle.Render(fmt.Sprintf("draw passes: %d  q: quit", m.draws)),
	)
}

// Render draws img with one half-block cell per two rows of pixels: the
// foreground is the upper pixel and the background the lower one.
func Render(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hex(img.At(x, y)))
			if y+1 < b.Max.Y {
				style = style.Background(hex(img.At(x, y+1)))
			}
			sb.WriteString(style.Render(halfBlock))
		}
	}
	return sb.String()
}

func hex(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
