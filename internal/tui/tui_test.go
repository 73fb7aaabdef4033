package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelUpdateTracksStepsYieldsAndFlags(t *testing.T) {
	m := model{}

	next, cmd := m.Update(stepMsg{pc: 4, cycles: 10})
	require.Nil(t, cmd)
	m = next.(model)
	require.Equal(t, 4, m.pc)
	require.Equal(t, 10, m.cycles)

	next, _ = m.Update(outputMsg{word: 7})
	m = next.(model)
	require.Equal(t, []int64{7}, m.yields)

	next, _ = m.Update(flagMsg{name: "done"})
	m = next.(model)
	require.Equal(t, "done", m.lastFlag)

	view := m.View()
	require.True(t, strings.Contains(view, "pc=4"))
	require.True(t, strings.Contains(view, "yields: 7"))
	require.True(t, strings.Contains(view, "flag: done"))
}

func TestModelUpdateCapsYieldHistory(t *testing.T) {
	m := model{}
	for i := 0; i < historyLimit+5; i++ {
		next, _ := m.Update(outputMsg{word: int64(i)})
		m = next.(model)
	}
	require.Len(t, m.yields, historyLimit)
	require.Equal(t, int64(5), m.yields[0])
}
