package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
	"github.com/jmylchreest/presence/internal/presence"
)

// PlainFormatter writes aligned key/value lines.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
	now      func() time.Time
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts, now: time.Now}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatConfig writes one line per field.
func (f *PlainFormatter) FormatConfig(w io.Writer, cfg *config.Presence) error {
	if f.template != nil {
		return f.template.Execute(w, cfg)
	}

	var sb strings.Builder
	f.field(&sb, "Client ID", cfg.ClientID)
	f.phrases(&sb, "Details", cfg.Details)
	f.phrases(&sb, "State", cfg.State)
	f.field(&sb, "Large image", cfg.LargeImageKey)
	f.field(&sb, "Large text", cfg.LargeImageText)
	f.field(&sb, "Small image", cfg.SmallImageKey)
	f.field(&sb, "Small text", cfg.SmallImageText)
	f.field(&sb, "Show timer", yesNo(cfg.ShowTimer))
	if cfg.DurationSec > 0 {
		f.field(&sb, "Duration", humanDuration(time.Duration(cfg.DurationSec)*time.Second))
	} else {
		f.field(&sb, "Duration", "open-ended")
	}
	f.field(&sb, "Rotate every", humanDuration(presence.Interval(cfg.RotateSec, config.MinRotateInterval)))
	f.field(&sb, "Run at login", yesNo(cfg.RunAtLogin))
	if len(cfg.Extra) > 0 {
		f.field(&sb, "Other keys", strings.Join(slices.Sorted(maps.Keys(cfg.Extra)), ", "))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatStatus writes a short human-readable status.
func (f *PlainFormatter) FormatStatus(w io.Writer, snap model.Snapshot) error {
	if f.template != nil {
		return f.template.Execute(w, snap)
	}

	var sb strings.Builder
	f.field(&sb, "Connection", snap.State)
	f.field(&sb, "Client ID", snap.ClientID)
	if snap.User != "" {
		f.field(&sb, "User", snap.User)
	}

	if snap.Rotating {
		f.field(&sb, "Rotating", fmt.Sprintf("every %s (tick %s)", humanDuration(snap.Interval), humanize.Comma(int64(snap.Tick))))
	} else {
		f.field(&sb, "Rotating", "no")
	}

	if a := snap.Activity; a != nil {
		f.field(&sb, "Details", sanitize(a.Details, f.opts.MaxLen))
		f.field(&sb, "State", sanitize(a.State, f.opts.MaxLen))
		if a.StartTimestamp > 0 {
			f.field(&sb, "Started", humanize.RelTime(a.StartTime(), f.now(), "ago", "from now"))
		}
		if a.EndTimestamp > 0 {
			f.field(&sb, "Ends", humanize.RelTime(a.EndTime(), f.now(), "ago", "from now"))
		}
	}
	if !snap.LastTick.IsZero() {
		f.field(&sb, "Last update", humanize.RelTime(snap.LastTick, f.now(), "ago", "from now"))
	}
	if snap.Last != nil {
		result := "ok"
		if !snap.Last.OK {
			result = "failed"
		}
		f.field(&sb, "Last result", fmt.Sprintf("%s: %s", result, snap.Last.Msg))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatHistory writes one line per event. A template is executed once
// per event.
func (f *PlainFormatter) FormatHistory(w io.Writer, events []model.Event) error {
	var sb strings.Builder
	for _, e := range events {
		if f.template != nil {
			if err := f.template.Execute(&sb, e); err != nil {
				return err
			}
			sb.WriteString("\n")
			continue
		}

		result := "ok"
		if !e.OK {
			result = "failed"
		}
		fmt.Fprintf(&sb, "%-19s  %-14s  %-6s  %s\n",
			e.Time.Local().Format("2006-01-02 15:04:05"),
			humanize.RelTime(e.Time, f.now(), "ago", "from now"),
			result,
			sanitize(e.Msg, f.opts.MaxLen))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PlainFormatter) field(sb *strings.Builder, label, value string) {
	if value == "" && !f.opts.ShowEmpty {
		return
	}
	fmt.Fprintf(sb, "%-13s %s\n", label+":", value)
}

func (f *PlainFormatter) phrases(sb *strings.Builder, label, value string) {
	list := presence.ParseList(value)
	if !f.opts.ShowPhrase || len(list) <= 1 {
		f.field(sb, label, sanitize(value, f.opts.MaxLen))
		return
	}
	f.field(sb, label, fmt.Sprintf("%d phrases", len(list)))
	for i, p := range list {
		fmt.Fprintf(sb, "  %2d. %s\n", i+1, sanitize(p, f.opts.MaxLen))
	}
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			return sanitize(s, maxLen)
		},
		"phrases": presence.ParseList,
		"reltime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.Time(t)
		},
		"seconds": func(d time.Duration) int {
			return int(d / time.Second)
		},
	}
}

// humanDuration formats whole-second durations such as "15s" or "2m30s".
func humanDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// sanitize flattens text to a single line and truncates it.
func sanitize(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " | ")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if maxLen > 0 && len(runes) > maxLen {
		if maxLen <= 3 {
			return string(runes[:maxLen])
		}
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
