package bundle

import (
	"sync/atomic"
)

// Holder holds the current runtime source and lets it be replaced while
// translations are running. Readers that need a consistent view across
// several calls take a snapshot with Current.
type Holder struct {
	cur atomic.Pointer[holderState]
}

type holderState struct {
	src Source
}

// NewHolder creates a holder serving src.
func NewHolder(src Source) *Holder {
	h := &Holder{}
	h.Store(src)
	return h
}

// Current returns the source being served.
func (h *Holder) Current() Source {
	return h.cur.Load().src
}

// Store replaces the source being served. Calls already holding the previous
// source keep using it.
func (h *Holder) Store(src Source) {
	if src == nil {
		panic("bundle: Holder.Store(nil)")
	}
	h.cur.Store(&holderState{src: src})
}

// Index returns the current source's index.
func (h *Holder) Index() *Index {
	return h.Current().Index()
}

// Provider returns a section from the current source.
func (h *Holder) Provider(id string) (*ProviderSection, error) {
	return h.Current().Provider(id)
}
