package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/rewrite"
)

func TestApply_SingleRule(t *testing.T) {
	rules, err := rewrite.Compile([]config.RewriteRule{
		{From: `^/mnt/downloads/`, To: "/media/"},
	})
	require.NoError(t, err)

	got := rewrite.Apply(rules, "/mnt/downloads/Show/ep1.mkv")
	assert.Equal(t, "/media/Show/ep1.mkv", got)
}

func TestApply_ChainedRulesFeedForward(t *testing.T) {
	rules, err := rewrite.Compile([]config.RewriteRule{
		{From: `^/mnt/downloads/`, To: "/media/"},
		{From: `/media/`, To: "/library/"},
	})
	require.NoError(t, err)

	got := rewrite.Apply(rules, "/mnt/downloads/Show/ep1.mkv")
	assert.Equal(t, "/library/Show/ep1.mkv", got)
}

func TestApply_CaptureGroupReplacement(t *testing.T) {
	rules, err := rewrite.Compile([]config.RewriteRule{
		{From: `^/tv/(.+)$`, To: "/media/tv/$1"},
	})
	require.NoError(t, err)

	got := rewrite.Apply(rules, "/tv/Show/ep1.mkv")
	assert.Equal(t, "/media/tv/Show/ep1.mkv", got)
}

func TestApply_NoRulesIsIdentity(t *testing.T) {
	got := rewrite.Apply(nil, "/untouched/path.mkv")
	assert.Equal(t, "/untouched/path.mkv", got)
}

func TestApply_IsPureFunction(t *testing.T) {
	rules, err := rewrite.Compile([]config.RewriteRule{{From: "a", To: "b"}})
	require.NoError(t, err)

	first := rewrite.Apply(rules, "banana")
	second := rewrite.Apply(rules, "banana")
	assert.Equal(t, first, second)
}

func TestCompile_InvalidPatternErrors(t *testing.T) {
	_, err := rewrite.Compile([]config.RewriteRule{{From: "(unclosed", To: ""}})
	assert.Error(t, err)
}
