package biz

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter_Invalid(t *testing.T) {
	_, err := NewSplitter(0, 0)
	assert.Error(t, err)
	_, err = NewSplitter(100, 100)
	assert.Error(t, err)
	_, err = NewSplitter(100, -1)
	assert.Error(t, err)
}

func TestSplitter_ShortText(t *testing.T) {
	s, err := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sepsis is an emergency."}, s.Split("  Sepsis is an emergency.\n"))
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split(" \n\n \t"))
}

func TestSplitter_PrefersParagraphs(t *testing.T) {
	s, err := NewSplitter(30, 0)
	require.NoError(t, err)

	chunks := s.Split("first paragraph here\n\nsecond paragraph here")
	assert.Equal(t, []string{"first paragraph here", "second paragraph here"}, chunks)
}

func TestSplitter_RespectsSizeAndCoversInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "w%04d ", i)
		if i%37 == 0 {
			b.WriteString("\n")
		}
		if i%91 == 0 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	s, err := NewSplitter(100, 20)
	require.NoError(t, err)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	joined := strings.Join(chunks, " ")
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
	for i := 0; i < 400; i++ {
		assert.Contains(t, joined, fmt.Sprintf("w%04d", i))
	}

	// 相邻切片存在重叠
	prev := strings.Fields(chunks[1])
	assert.True(t, strings.HasPrefix(chunks[2], prev[len(prev)-3]), "chunk %q should start with overlap from %q", chunks[2], chunks[1])

	// 同一输入的切分结果稳定
	assert.Equal(t, chunks, s.Split(text))
}

func TestSplitter_HardCutsWithoutSeparators(t *testing.T) {
	s, err := NewSplitter(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 5) + "XYZ"
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "XYZ"))
}

func TestSplitter_CountsRunes(t *testing.T) {
	s, err := NewSplitter(5, 0)
	require.NoError(t, err)

	chunks := s.Split("脓毒症是危及生命的器官功能障碍")
	require.Len(t, chunks, 3)
	assert.Equal(t, "脓毒症是危", chunks[0])
	assert.Equal(t, "官功能障碍", chunks[2])
}
