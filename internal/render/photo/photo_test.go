package photo

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rotatedJPEG encodes a w x h JPEG carrying a big-endian EXIF orientation tag.
func rotatedJPEG(t *testing.T, w, h, orientation int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, imaging.New(w, h, color.NRGBA{G: 0x80, A: 0xff}), nil))
	raw := buf.Bytes()

	var app1 bytes.Buffer
	app1.WriteString("Exif\x00\x00")
	app1.WriteString("MM\x00\x2a\x00\x00\x00\x08")
	_ = binary.Write(&app1, binary.BigEndian, uint16(1))
	_ = binary.Write(&app1, binary.BigEndian, []uint16{0x0112, 3})
	_ = binary.Write(&app1, binary.BigEndian, uint32(1))
	_ = binary.Write(&app1, binary.BigEndian, []uint16{uint16(orientation), 0})
	_ = binary.Write(&app1, binary.BigEndian, uint32(0))

	var out bytes.Buffer
	out.Write(raw[:2])
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(app1.Len()+2))
	out.Write(app1.Bytes())
	out.Write(raw[2:])
	return out.Bytes()
}

func TestOrientation(t *testing.T) {
	assert.Equal(t, 6, Orientation(rotatedJPEG(t, 8, 10, 6)))
	assert.Equal(t, 3, Orientation(rotatedJPEG(t, 8, 10, 3)))

	var plain bytes.Buffer
	require.NoError(t, jpeg.Encode(&plain, imaging.New(8, 10, color.White), nil))
	assert.Equal(t, 1, Orientation(plain.Bytes()))

	assert.Equal(t, 1, Orientation(nil))
	assert.Equal(t, 1, Orientation([]byte("\x89PNG\r\n")))
	assert.Equal(t, 1, Orientation([]byte{0xff, 0xd8, 0xff, 0xe1, 0xff}))
}

func TestUpright_RotatedJPEG(t *testing.T) {
	src := rotatedJPEG(t, 80, 100, 6)

	img, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 80), img.Bounds())

	data, w, h, err := Upright(src)
	require.NoError(t, err)
	assert.Equal(t, 100, w)
	assert.Equal(t, 80, h)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestUpright_KeepsUnrotatedBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(30, 40, color.Black)))

	data, w, h, err := Upright(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), data)
	assert.Equal(t, 30, w)
	assert.Equal(t, 40, h)
}

func TestUpright_Errors(t *testing.T) {
	_, _, _, err := Upright(nil)
	require.Error(t, err)
	_, _, _, err = Upright([]byte("not an image"))
	require.Error(t, err)
}
