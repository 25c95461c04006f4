package render

// Markdown renders markdown for the terminal. Fence tags are normalized
// first, so text that is still streaming renders its open code block.
func Markdown(content string, opts Options) (string, error) {
	tr, release, err := shared.acquire(opts)
	if err != nil {
		return "", err
	}
	defer release()

	return tr.Render(NormalizeFences(content))
}
