package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu        sync.Mutex
	out       io.Writer = os.Stdout
	quietMode bool
)

// SetOutput redirects all terminal output. Tests pass a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Output returns the current terminal writer
func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietMode = quiet
}

func emit(quietable bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if quietable && quietMode {
		return
	}
	fmt.Fprintln(out, s)
}

func withDetail(msg string, args []interface{}) string {
	if len(args) > 0 && args[0] != nil && fmt.Sprint(args[0]) != "" {
		return msg + ": " + fmt.Sprint(args[0])
	}
	return msg
}

// PrintError prints an error message in red, with an optional detail
func PrintError(msg string, args ...interface{}) {
	emit(false, errorStyle.Render("- "+withDetail(msg, args)))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(true, successStyle.Render("- "+msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	emit(true, fmt.Sprintf("%s: %s", labelStyle.Render(label), valueStyle.Render(value)))
}

// PrintWarning prints a warning message, with an optional detail
func PrintWarning(msg string, args ...interface{}) {
	emit(true, warningStyle.Render("- "+withDetail(msg, args)))
}

// PrintHighlight prints a highlighted heading
func PrintHighlight(msg string) {
	emit(true, highlightStyle.Render(msg))
}

// PrintDim prints secondary text
func PrintDim(msg string) {
	emit(true, dimStyle.Render(msg))
}
