package local

import "github.com/gobeaver/intake"

func init() {
	intake.RegisterDriver("local", func(cfg *intake.Config) (intake.FileSystem, error) {
		return New(cfg.LocalBasePath)
	})
}
