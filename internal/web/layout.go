// Package web renders the HTML page shells the front-end mounts into.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

var layoutTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html"))

// Metadata is the document title and description.
type Metadata struct {
	Title       string
	Description string
}

// Viewport configures the mobile viewport.
type Viewport struct {
	Width        string
	InitialScale float64
	MaximumScale float64
	UserScalable bool
	ThemeColor   string
}

// Content renders the viewport meta tag value.
func (v Viewport) Content() string {
	scalable := "no"
	if v.UserScalable {
		scalable = "yes"
	}
	return fmt.Sprintf("width=%s, initial-scale=%s, maximum-scale=%s, user-scalable=%s",
		v.Width,
		strconv.FormatFloat(v.InitialScale, 'f', -1, 64),
		strconv.FormatFloat(v.MaximumScale, 'f', -1, 64),
		scalable,
	)
}

// Layout is a page shell: fixed metadata and viewport around child content.
type Layout struct {
	Metadata Metadata
	Viewport Viewport
}

// fixedViewport disables zoom so the dashboard behaves like an app.
var fixedViewport = Viewport{
	Width:        "device-width",
	InitialScale: 1,
	MaximumScale: 1,
	UserScalable: false,
	ThemeColor:   "#0f172a",
}

// AppShell wraps the dashboard.
var AppShell = Layout{
	Metadata: Metadata{
		Title:       "Account Pulse",
		Description: "Customer account health across Asana, Slack and Gmail",
	},
	Viewport: fixedViewport,
}

// VoiceShell wraps the voice capture page.
var VoiceShell = Layout{
	Metadata: Metadata{
		Title:       "Account Pulse Voice",
		Description: "Capture account notes by voice with live transcription",
	},
	Viewport: fixedViewport,
}

type layoutData struct {
	Metadata Metadata
	Viewport Viewport
	Children template.HTML
}

// Render writes the shell with children inside its full-height container.
// children is trusted markup.
func (l Layout) Render(w io.Writer, children template.HTML) error {
	var buf bytes.Buffer
	err := layoutTemplate.ExecuteTemplate(&buf, "layout", layoutData{
		Metadata: l.Metadata,
		Viewport: l.Viewport,
		Children: children,
	})
	if err != nil {
		return fmt.Errorf("render layout: %w", err)
	}

	_, err = buf.WriteTo(w)
	return err
}
