package notifier

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"liqwatch/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Console writes announcement lines and the live status line. Writes are
// serialised so the worker's bell and the poll loop never interleave.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	row int
	col int
}

func NewConsole(out io.Writer, row, col int) *Console {
	return &Console{out: out, row: row, col: col}
}

// PrintEvent writes one tab-aligned line for ev.
func (c *Console) PrintEvent(ev model.Event) {
	c.write(FormatEvent(ev) + "\n")
}

// StatusLine prints now at the fixed status position and restores the cursor.
func (c *Console) StatusLine(now time.Time) {
	c.write(fmt.Sprintf("\x1b7\x1b[%d;%df%s\x1b8", c.row, c.col, now.Format(timeLayout)))
}

// Bell rings the terminal bell.
func (c *Console) Bell() {
	c.write("\a")
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, s)
}

// FormatEvent renders the console line for ev without a trailing newline.
func FormatEvent(ev model.Event) string {
	at := ev.Time.Format(timeLayout)
	switch ev.Kind {
	case model.KindOpenInterest:
		return fmt.Sprintf("Open interest change:\t%9d\t(raw %s)\t at %s", ev.Rounded, amountText(ev.Amount), at)
	default:
		return fmt.Sprintf("Liquidation detected:\t%s\t$%9s.-\t at %s", ev.Direction, amountText(ev.Amount), at)
	}
}

// Sentence is the short text spoken for ev.
func Sentence(ev model.Event) string {
	switch ev.Kind {
	case model.KindOpenInterest:
		return fmt.Sprintf("open interest changed by %d", ev.Rounded)
	default:
		return fmt.Sprintf("%s %s liquidation detected", amountText(ev.Amount), ev.Direction)
	}
}

// amountText prints whole amounts without a fractional part.
func amountText(v float64) string {
	return decimal.NewFromFloat(v).String()
}
