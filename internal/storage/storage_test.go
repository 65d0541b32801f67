package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var objectNamePattern = regexp.MustCompile(`^[a-z0-9-]+-[0-9a-f]{8}\.[a-z0-9]+$`)

func TestObjectName(t *testing.T) {
	name, err := ObjectName("My Product Photo.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "my-product-photo-"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)
	assert.Regexp(t, objectNamePattern, name)

	other, err := ObjectName("My Product Photo.PNG")
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}

func TestCleanFolder(t *testing.T) {
	folder, err := CleanFolder("")
	require.NoError(t, err)
	assert.Equal(t, "uploads", folder)

	folder, err = CleanFolder("items")
	require.NoError(t, err)
	assert.Equal(t, "items", folder)

	_, err = CleanFolder("../etc")
	assert.ErrorIs(t, err, ErrInvalidFolder)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateFileSize(10, 10))
	assert.ErrorIs(t, ValidateFileSize(11, 10), ErrFileTooLarge)
	assert.NoError(t, ValidateContentType("image/png", AllowedContentTypes))
	assert.ErrorIs(t, ValidateContentType("text/html", AllowedContentTypes), ErrContentTypeNotAllowed)
}

func TestLocalStorage_Save(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStorage(root, "http://localhost:8080/", "media")

	url, err := store.Save(context.Background(), "items", "widget.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"), 10)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/media/items/widget-"), url)

	name := url[strings.LastIndex(url, "/")+1:]
	data, err := os.ReadFile(filepath.Join(root, "items", name))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = store.PresignUpload(context.Background(), "items", "x.png", "image/png")
	assert.ErrorIs(t, err, ErrPresignUnsupported)
}
