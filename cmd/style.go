package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

// sty decorates human-facing output. Color is used only when the writer is
// a terminal and neither NO_COLOR nor TERM=dumb is set.
type sty struct {
	w     io.Writer
	color bool
}

func newSty(w io.Writer) *sty {
	return &sty{w: w, color: colorEnabled(w)}
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s *sty) paint(codes, text string) string {
	if !s.color {
		return text
	}
	return codes + text + ansiReset
}

func (s *sty) bold(t string) string { return s.paint(ansiBold, t) }
func (s *sty) dim(t string) string  { return s.paint(ansiDim, t) }
func (s *sty) cyan(t string) string { return s.paint(ansiCyan, t) }

// header prints an underlined title.
func (s *sty) header(title string) {
	fmt.Fprintln(s.w)
	fmt.Fprintf(s.w, "  %s\n", s.paint(ansiBold+ansiCyan, title))
	fmt.Fprintf(s.w, "  %s\n", s.dim(strings.Repeat("═", utf8.RuneCountInString(title))))
}

// section prints a titled divider line.
func (s *sty) section(title string) {
	rest := max(3, 40-utf8.RuneCountInString(title))
	fmt.Fprintln(s.w)
	fmt.Fprintf(s.w, "  %s %s %s\n", s.dim("───"), s.bold(title), s.dim(strings.Repeat("─", rest)))
}

func (s *sty) step(n int, text string) {
	fmt.Fprintf(s.w, "  %s %s\n", s.dim(fmt.Sprintf("%2d.", n)), text)
}

func (s *sty) success(text string) {
	fmt.Fprintf(s.w, "  %s %s\n", s.paint(ansiBold+ansiGreen, "✓"), text)
}

func (s *sty) info(text string) {
	fmt.Fprintf(s.w, "    %s\n", text)
}

func (s *sty) choice(n int, label, note string) {
	if note != "" {
		label += " " + s.dim(note)
	}
	fmt.Fprintf(s.w, "    %s %s\n", s.cyan(fmt.Sprintf("%d)", n)), label)
}

// spinner shows that a human reply is still awaited, with the time spent
// waiting so far. Without color it prints the message once.
type spinner struct {
	s    *sty
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (s *sty) startSpinner(msg string) *spinner {
	sp := &spinner{s: s, done: make(chan struct{})}
	if !s.color {
		fmt.Fprintf(s.w, "  %s\n", msg)
		return sp
	}

	start := time.Now()
	sp.wg.Add(1)
	go func() {
		defer sp.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-sp.done:
				fmt.Fprint(s.w, "\r\033[2K")
				return
			case <-ticker.C:
				elapsed := time.Since(start).Truncate(time.Second)
				fmt.Fprintf(s.w, "\r  %s %s %s", s.cyan(spinnerFrames[i%len(spinnerFrames)]), msg, s.dim(elapsed.String()))
			}
		}
	}()
	return sp
}

func (sp *spinner) stop() {
	sp.once.Do(func() { close(sp.done) })
	sp.wg.Wait()
}
