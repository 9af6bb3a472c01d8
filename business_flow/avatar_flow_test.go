package businessflow

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/contactkeeper/accounts/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func TestDecodeAvatarImage(t *testing.T) {
	t.Run("DecodesPNG", func(t *testing.T) {
		data := encodePNG(t, 100, 80)

		img, err := decodeAvatarImage(bytes.NewReader(data))
		require.NoError(t, err)
		require.NotNil(t, img)
		assert.Equal(t, 100, img.Bounds().Dx())
		assert.Equal(t, 80, img.Bounds().Dy())
	})

	t.Run("DecodesJPEG", func(t *testing.T) {
		data := encodeJPEG(t, 64, 64)

		img, err := decodeAvatarImage(bytes.NewReader(data))
		require.NoError(t, err)
		require.NotNil(t, img)
	})

	t.Run("RejectsNonImageContent", func(t *testing.T) {
		data := []byte("this is plain text, not an image at all, padded to look real enough")

		img, err := decodeAvatarImage(bytes.NewReader(data))
		require.Error(t, err)
		assert.Nil(t, img)
		assert.True(t, IsUnsupportedAvatarType(err))
	})

	t.Run("RejectsCorruptImageData", func(t *testing.T) {
		// A valid PNG signature followed by garbage sniffs as image/png but
		// fails to decode
		data := append([]byte("\x89PNG\r\n\x1a\n"), []byte(strings.Repeat("garbage", 100))...)

		img, err := decodeAvatarImage(bytes.NewReader(data))
		require.Error(t, err)
		assert.Nil(t, img)
		assert.True(t, IsUnsupportedAvatarType(err))
	})

	t.Run("RejectsOversizedContent", func(t *testing.T) {
		valid := encodePNG(t, 10, 10)
		padding := make([]byte, utils.MaxAvatarSizeBytes)
		data := append(valid, padding...)

		img, err := decodeAvatarImage(bytes.NewReader(data))
		require.Error(t, err)
		assert.Nil(t, img)
		assert.True(t, IsAvatarTooLarge(err))
	})
}

func TestNormalizeAvatar(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"square", 500, 500},
		{"landscape", 800, 400},
		{"portrait", 300, 600},
		{"tiny", 16, 16},
		{"already target size", utils.AvatarDimension, utils.AvatarDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.width, tt.height))

			result := normalizeAvatar(src)

			// Output is always a square canvas of the target dimension
			assert.Equal(t, utils.AvatarDimension, result.Bounds().Dx())
			assert.Equal(t, utils.AvatarDimension, result.Bounds().Dy())
		})
	}
}

func TestNormalizeAvatarPadsWithWhite(t *testing.T) {
	// A fully black landscape image gets white bars above and below
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 400; x++ {
			src.Set(x, y, color.RGBA{A: 255})
		}
	}

	result := normalizeAvatar(src)

	r, g, b, _ := result.At(utils.AvatarDimension/2, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)

	r, g, b, _ = result.At(utils.AvatarDimension/2, utils.AvatarDimension/2).RGBA()
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}
