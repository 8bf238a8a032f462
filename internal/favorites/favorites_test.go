package favorites

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggle(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.True(t, s.Toggle("u1", "img1"))
	require.True(t, s.IsFavorite("u1", "img1"))

	require.False(t, s.Toggle("u1", "img1"))
	require.False(t, s.IsFavorite("u1", "img1"))
}

func TestListIsPerUser(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Toggle("u1", "img1")
	s.Toggle("u1", "img2")
	s.Toggle("u2", "img3")

	require.ElementsMatch(t, []string{"img1", "img2"}, s.List("u1"))
	require.ElementsMatch(t, []string{"img3"}, s.List("u2"))
	require.Empty(t, s.List("u3"))
}
