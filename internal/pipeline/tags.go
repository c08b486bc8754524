package pipeline

import (
	"fmt"

	"github.com/backmassage/muxtag/internal/engine"
)

// EmbedTag sets the comment tag on mux to value, replacing any previous
// comment. Other tag keys are left alone. The value is passed through
// byte-for-byte; the GStreamer engine rejects values that are empty or not
// valid UTF-8 rather than dropping them.
func EmbedTag(mux engine.Node, value string) error {
	setter, ok := mux.TagSetter()
	if !ok {
		return fmt.Errorf("embed tag: %s: %w", mux.Name(), ErrNoTagSetter)
	}
	if err := setter.AddTag(engine.TagComment, value, engine.MergeReplace); err != nil {
		return fmt.Errorf("embed tag on %s: %w", mux.Name(), err)
	}
	return nil
}
