package sender

import "sync"

// Draft is the text being composed. Read and written by the presentation layer,
// cleared and restored by the Coordinator.
type Draft struct {
	mu   sync.RWMutex
	text string
}

func NewDraft() *Draft {
	return &Draft{}
}

func (d *Draft) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

func (d *Draft) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
}
