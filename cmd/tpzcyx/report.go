package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tpzcyx/pkg/inspect"
)

var (
	colorAccent = lipgloss.Color("#2CD7C7")
	colorLabel  = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#2C4A54")
	colorWarn   = lipgloss.Color("#F4D03F")
	colorError  = lipgloss.Color("#E74C3C")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLabel).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(colorLabel)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	okStyle      = lipgloss.NewStyle().Foreground(colorAccent)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
)

// reportWriter accumulates styled lines and writes them once
type reportWriter struct {
	b strings.Builder
}

func (r *reportWriter) line(s string) {
	r.b.WriteString(s)
	r.b.WriteByte('\n')
}

func (r *reportWriter) field(label string, format string, args ...any) {
	r.line(labelStyle.Render(fmt.Sprintf("%-18s", label)) + fmt.Sprintf(format, args...))
}

func (r *reportWriter) flush(w io.Writer) error {
	_, err := io.WriteString(w, r.b.String())
	return err
}

func summaryFields(r *reportWriter, s inspect.Summary) {
	r.line(titleStyle.Render("TPZCYX dataset") + " " + mutedStyle.Render(s.MetaPath))
	r.field("Dimensions", "%s (T×P×Z×C×Y×X)", s.Dimensions)
	r.field("Elements", "%d", s.TotalElements())
	r.field("Payload", "%s (%s)", humanBytes(s.PayloadBytes), s.DataPath)
	r.field("Descriptor", "%d bytes", s.DescriptorBytes)
	r.field("Pixel size", "%.3f μm", s.PixelSizeUM)
	r.field("Time interval", "%.1f s", s.TimeIntervalS)
	r.field("Data type", "%s (format v%d)", s.DType, s.FormatVersion)
	r.field("Channels", "%s", strings.Join(s.ChannelNames, ", "))
}

func writeSummary(w io.Writer, s inspect.Summary) error {
	var r reportWriter
	r.line(okStyle.Render("✓ File validation successful"))
	summaryFields(&r, s)
	return r.flush(w)
}

func writeReport(w io.Writer, rep inspect.Report) error {
	var r reportWriter
	summaryFields(&r, rep.Summary)

	r.line(sectionStyle.Render("Channel statistics"))
	for _, c := range rep.Channels {
		r.field(fmt.Sprintf("  %d: %s", c.Index, c.Name),
			"min=%.1f max=%.1f mean=%.1f std=%.1f", c.Min, c.Max, c.Mean, c.StdDev)
	}

	r.line(sectionStyle.Render("Frame statistics (T=0, P=0, Z=0)"))
	for _, f := range rep.Frames {
		sat := fmt.Sprintf("saturated=%d/%d", f.Saturated, f.Pixels)
		if f.Saturated > 0 {
			sat = warnStyle.Render(sat)
		}
		r.field(fmt.Sprintf("  Channel %d", f.C),
			"min=%.1f max=%.1f mean=%.1f median=%.1f std=%.1f %s (>= %.0f)",
			f.Min, f.Max, f.Mean, f.Median, f.StdDev, sat, f.Threshold)
	}
	return r.flush(w)
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
