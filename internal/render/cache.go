package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// renderers lends out glamour renderers from one sync.Pool per option set.
// A TermRenderer must not serve two Render calls at once.
type renderers struct {
	mu    sync.Mutex
	pools map[Options]*sync.Pool
}

var shared = newRenderers()

func newRenderers() *renderers {
	return &renderers{pools: make(map[Options]*sync.Pool)}
}

// acquire borrows a renderer for opts. The caller must call release once the
// render is done. Option sets that fail to build never get a pool.
func (r *renderers) acquire(opts Options) (tr *glamour.TermRenderer, release func(), err error) {
	r.mu.Lock()
	pool := r.pools[opts]
	r.mu.Unlock()

	if pool != nil {
		if tr, ok := pool.Get().(*glamour.TermRenderer); ok {
			return tr, func() { pool.Put(tr) }, nil
		}
	}

	tr, err = newRenderer(opts)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		pool = r.register(opts)
	}
	return tr, func() { pool.Put(tr) }, nil
}

func (r *renderers) register(opts Options) *sync.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.pools[opts]; ok {
		return pool
	}
	pool := &sync.Pool{}
	r.pools[opts] = pool
	return pool
}

func (r *renderers) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = make(map[Options]*sync.Pool)
}

func (r *renderers) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

// newRenderer builds a TermRenderer for opts with the resolved style
func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	style, err := StyleConfig(opts.Style)
	if err != nil {
		return nil, err
	}

	ropts := []glamour.TermRendererOption{
		glamour.WithStyles(style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}
