// Package debug builds the console logger used by the command line tool.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const timeFormat = "2006-01-02T15:04:05.0000Z"

// NewLogger returns a console logger writing to w at the named level, with
// time and caller fields added by the hooks below.
func NewLogger(w io.Writer, level string, withColor bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), errors.Errorf("parsing log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !withColor,
		TimeFormat: timeFormat,
		PartsOrder: []string{zerolog.LevelFieldName, "time", "caller", zerolog.MessageFieldName},
		FieldsExclude: []string{
			"time",
			"caller",
		},
	}

	return zerolog.New(out).
		Level(lvl).
		Hook(CustomTimeHook{WithColor: withColor}).
		Hook(CustomCallerHook{WithColor: withColor}), nil
}

// skipFrames reads the unexported frame offset set by Event.CallerSkipFrame.
func skipFrames(e *zerolog.Event) int {
	field := reflect.ValueOf(e).Elem().FieldByName("skipFrame")
	if field.IsValid() {
		return int(field.Int())
	}
	return 0
}

type CustomTimeHook struct {
	WithColor bool
	Format    string
}

func (t CustomTimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = timeFormat
	}
	e.Str("time", time.Now().UTC().Format(format))
}

type CustomCallerHook struct {
	WithColor bool
}

func (c CustomCallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(skipFrames(e) + 3)
	if !ok {
		return
	}

	pkg := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		pkg, _ = SplitFuncName(fn.Name())
	}

	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name into its package path and the
// function, keeping the receiver with the function:
//
//	github.com/x/y/pkg.(*T).M -> github.com/x/y/pkg, (*T).M
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	dot := strings.IndexByte(name[lastSlash:], '.')
	if dot < 0 {
		return name, ""
	}
	dot += lastSlash

	pkg, function = name[:dot], name[dot+1:]
	if before, after, ok := strings.Cut(pkg, ".("); ok {
		pkg, function = before, "("+after+"."+function
	}
	return pkg, function
}

func FormatCaller(pkg, path string, number int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}

	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, number)
	}

	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep +
		color.New(color.Bold).Sprint(file) + sep +
		color.New(color.FgHiRed, color.Bold).Sprintf("%d", number)
}
