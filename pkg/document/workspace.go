package document

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// NormalizeURI strips the file scheme so that "file:///a.aspx" and "/a.aspx"
// name the same document.
func NormalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Workspace keeps the newest snapshot of every open document. It is safe for
// concurrent use.
type Workspace struct {
	opts  Options
	store *sync.Map // map[string]*Snapshot
}

func NewWorkspace(opts Options) *Workspace {
	return &Workspace{
		opts:  opts,
		store: &sync.Map{},
	}
}

// Update builds a snapshot for text and stores it unless a newer version of
// the document is already stored. It returns the stored snapshot and whether
// it is the one just built.
func (w *Workspace) Update(ctx context.Context, uri string, version int32, text string) (*Snapshot, bool, error) {
	key := NormalizeURI(uri)

	snap, err := Build(ctx, key, version, text, w.opts)
	if err != nil {
		return nil, false, err
	}

	for {
		current, loaded := w.store.LoadOrStore(key, snap)
		if !loaded {
			return snap, true, nil
		}
		old := current.(*Snapshot)
		if old.Version > version {
			return old, false, nil
		}
		if w.store.CompareAndSwap(key, old, snap) {
			return snap, true, nil
		}
	}
}

func (w *Workspace) Get(uri string) (*Snapshot, bool) {
	v, ok := w.store.Load(NormalizeURI(uri))
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

func (w *Workspace) Delete(uri string) {
	w.store.Delete(NormalizeURI(uri))
}

// URIs lists the stored documents in sorted order.
func (w *Workspace) URIs() []string {
	var out []string
	w.store.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}
