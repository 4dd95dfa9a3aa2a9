package web

import "embed"

// TemplatesFS holds the page templates and the shared header/footer partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the form script.
//
//go:embed static/*
var StaticFS embed.FS
