// Package render turns markdown into styled terminal output.
package render

// Options selects how markdown is rendered. Options is comparable and keys
// the renderer pool.
type Options struct {
	// Width is the word-wrap column
	Width int
	// Style names a built-in style (see StyleNames) or a JSON style file
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Style:            StyleDark,
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// WithWidth returns a copy wrapping at width
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithStyle returns a copy using style
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}
