// Package replay implements an interactive log pane: a logrus.Hook that
// captures every formatted log line into a bounded ring buffer so a
// terminal UI (cmd/vmshell's `log` command) can page back through recent
// subsystem activity instead of only seeing whatever scrolled past.
// Grounded on circbuf.Circbuf, the same ring buffer tem.Monitor.Trace
// uses for its instruction trace.
package replay

import (
	"sync"

	"github.com/sirupsen/logrus"

	"circbuf"
)

// Pane is a logrus.Hook that mirrors every fired entry into a circbuf.
// Install it with obslog.AddHook once and then poll Lines at any time.
type Pane struct {
	mu  sync.Mutex
	buf *circbuf.Circbuf
	fmt logrus.Formatter
}

// New returns a Pane that retains up to size bytes of formatted log
// lines, oldest evicted first.
func New(size int) *Pane {
	return &Pane{buf: circbuf.New(size), fmt: &logrus.TextFormatter{DisableColors: true}}
}

// Levels reports that this hook fires for every log level, matching the
// "every fatal/kill/exhaustion path" requirement: a pane that missed
// warnings would be useless for postmortem review.
func (p *Pane) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire formats entry and appends it to the ring buffer.
func (p *Pane) Fire(entry *logrus.Entry) error {
	line, err := p.fmt.Format(entry)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, werr := p.buf.Write(line)
	return werr
}

// Lines returns every byte currently retained, oldest first.
func (p *Pane) Lines() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Lines()
}

// Empty reports whether the pane has captured anything yet.
func (p *Pane) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Empty()
}
