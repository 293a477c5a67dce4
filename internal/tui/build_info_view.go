// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"strings"

	"github.com/MKhiriev/go-favsync/models"
)

// RenderBuildInfo renders the version page of the client.
func RenderBuildInfo(info models.AppBuildInfo) string {
	var b strings.Builder

	b.WriteString(row("Application:", "favsync"))
	b.WriteString(row("Version:", valueOrNA(info.BuildVersion())))
	b.WriteString(row("Date:", valueOrNA(info.BuildDate())))
	b.WriteString(row("Commit:", valueOrNA(info.BuildCommit())))

	return renderPage("ABOUT", b.String())
}

func valueOrNA(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "N/A"
	}
	return v
}
