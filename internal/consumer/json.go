package consumer

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/rickgao/nifty-data/internal/model"
)

// JSON pretty-prints every tick and order event to a writer.
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSON writes to w, or stdout when w is nil.
func NewJSON(w io.Writer) *JSON {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSON{enc: enc}
}

func (j *JSON) OnTick(t model.CanonicalTick) error {
	return j.encode(t)
}

func (j *JSON) OnOrderEvent(e map[string]any) error {
	return j.encode(map[string]any{"order_event": e})
}

func (j *JSON) encode(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(v)
}
