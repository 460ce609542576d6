package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file.mp3", "normal-file.mp3"},
		{"file:with:colons.mp3", "file_with_colons.mp3"},
		{"file/with\\slashes.mp3", "file_with_slashes.mp3"},
		{"file?with*wildcards.mp3", "file_with_wildcards.mp3"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte("one"), 0600))
	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte("two"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "out.json")
	assert.ErrorIs(t, WriteFileAtomic(ctx, path, []byte("x"), 0600), context.Canceled)
	assert.NoFileExists(t, path)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"already small", 800, 600, 800, 600},
		{"wide", 1500, 1000, 1000, 666},
		{"tall", 1000, 2000, 500, 1000},
		{"square", 3000, 3000, 1000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, 1000, 1000)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestImageService_PrepareCover(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			src.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := NewImageService().PrepareCover(context.Background(), buf.Bytes(), 10)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestImageService_InvalidData(t *testing.T) {
	_, err := NewImageService().ConvertToJPEG(context.Background(), []byte("not an image"))
	assert.Error(t, err)
}
