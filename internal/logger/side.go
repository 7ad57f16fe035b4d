package logger

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// The ingest batch keeps a side log of skipped symbols so a bad provider day
// can be replayed without grepping the main log.

var (
	sideMu  sync.Mutex
	sideLog *log.Logger
)

// SetSideWriter installs the skipped-symbol side writer. Pass nil to disable.
func SetSideWriter(w io.Writer) {
	sideMu.Lock()
	defer sideMu.Unlock()
	if w == nil {
		sideLog = nil
		return
	}
	sideLog = log.New(w, "", 0)
}

// Skippedf records one skipped-symbol line on the side writer and mirrors it
// to the main log at warn level.
func Skippedf(symbol, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	Warnf("skipped %s: %s", symbol, msg)
	sideMu.Lock()
	l := sideLog
	sideMu.Unlock()
	if l == nil {
		return
	}
	l.Printf("%s\t%s\t%s", time.Now().Format(time.RFC3339), symbol, msg)
}
