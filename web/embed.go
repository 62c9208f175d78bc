// Package web embeds the browser chart client served at /.
package web

import "embed"

// Content holds the canvas frontend: index.html, app.js and styles.css.
//
//go:embed index.html app.js styles.css
var Content embed.FS
