package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulse-platform/assistant/internal/composer"
)

func TestFingerprint_Deterministic(t *testing.T) {
	cmds := []composer.Command{
		{Type: composer.CmdSearch, Params: map[string]any{"query": "golang", "limit": 20}},
		{Type: composer.CmdTrending, Params: map[string]any{"post_limit": 10, "forum_limit": 5}},
	}

	a := Fingerprint("what's new in go?", "User is browsing the explore page.", cmds)
	b := Fingerprint("what's new in go?", "User is browsing the explore page.", cmds)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_MessageNormalization(t *testing.T) {
	cmds := []composer.Command{{Type: composer.CmdSearch, Params: map[string]any{"query": "go"}}}

	a := Fingerprint("What's New In Go?", "ctx", cmds)
	b := Fingerprint("  what's   new in go?  ", "ctx", cmds)
	assert.Equal(t, a, b, "case and whitespace variants share a fingerprint")
}

func TestFingerprint_Sensitivity(t *testing.T) {
	cmds := []composer.Command{{Type: composer.CmdSearch, Params: map[string]any{"query": "go"}}}

	base := Fingerprint("message", "ctx", cmds)

	assert.NotEqual(t, base, Fingerprint("other message", "ctx", cmds))
	assert.NotEqual(t, base, Fingerprint("message", "other ctx", cmds))
	assert.NotEqual(t, base, Fingerprint("message", "ctx",
		[]composer.Command{{Type: composer.CmdSearch, Params: map[string]any{"query": "rust"}}}))
	assert.NotEqual(t, base, Fingerprint("message", "ctx", nil))
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// The separator keeps "ab"+"c" distinct from "a"+"bc".
	assert.NotEqual(t,
		Fingerprint("ab", "c", nil),
		Fingerprint("a", "bc", nil))
}
