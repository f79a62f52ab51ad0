// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

//go:embed assets migrations all:templates
var FS embed.FS

const (
	MigrationsDir       = "migrations"
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsPath = "assets/common-passwords.txt.gz"
)
