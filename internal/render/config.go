package render

import (
	"os"

	"github.com/diogo/gemchat/internal/config"
)

// OptionsFromConfig builds render options from the markdown section of the
// configuration. GLAMOUR_STYLE, when set, overrides the configured style.
func OptionsFromConfig(md config.MarkdownConfig) Options {
	opts := DefaultOptions()
	if md.Style != "" {
		opts = opts.WithStyle(md.Style)
	}
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks

	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		opts = opts.WithStyle(style)
	}
	return opts
}
