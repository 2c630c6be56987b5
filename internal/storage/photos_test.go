package storage

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndDelete(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	name, n, err := l.Save(7, "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.EqualValues(t, len("jpeg-bytes"), n)
	assert.True(t, strings.HasPrefix(name, "p7/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	p, err := l.Path(name)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, l.Delete(name))
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, l.Delete(name))
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, _, err = l.Save(1, "application/pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	big := bytes.Repeat([]byte{0xff}, MaxPhotoSize+1)
	_, _, err = l.Save(1, "image/png", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(l.Dir + "/p1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPathRejectsTraversal(t *testing.T) {
	l := &Local{Dir: t.TempDir()}
	for _, name := range []string{"../etc/passwd", "/etc/passwd", ".."} {
		_, err := l.Path(name)
		assert.Error(t, err, name)
	}
}
