package vector

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/render/raster"
)

type stubFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *stubFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

type stubFont struct {
	data []byte
	err  error
}

func (f stubFont) Bytes(ctx context.Context) ([]byte, error) { return f.data, f.err }

func shirt(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(w, h, color.NRGBA{B: 0xff, A: 0xff})))
	return buf.Bytes()
}

type parsed struct {
	width, height string
	texts         []string
	transforms    []string
	styles        int
	images        int
}

// parse walks the document and collects what the tests assert on.
func parse(t *testing.T, data []byte) parsed {
	t.Helper()
	var p parsed
	dec := xml.NewDecoder(bytes.NewReader(data))
	var inText bool
	var lastTransform string
	var cur strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "svg":
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "width":
						p.width = a.Value
					case "height":
						p.height = a.Value
					}
				}
			case "g":
				lastTransform = ""
				for _, a := range el.Attr {
					if a.Name.Local == "transform" {
						lastTransform = a.Value
					}
				}
			case "text":
				inText = true
				cur.Reset()
			case "style":
				p.styles++
			case "image":
				p.images++
			}
		case xml.CharData:
			if inText {
				cur.Write(el)
			}
		case xml.EndElement:
			if el.Name.Local == "text" {
				inText = false
				if lastTransform != "" {
					p.texts = append(p.texts, cur.String())
					p.transforms = append(p.transforms, lastTransform)
				}
			}
		}
	}
	return p
}

func TestComposite_SizeAndText(t *testing.T) {
	f := &stubFetcher{data: shirt(t, 800, 1000)}
	e := New(stubFont{data: []byte("font-bytes")}, f, domain.DefaultLimits(), "KidsTee")

	art, err := e.Composite(context.Background(), "https://cdn.example.com/back.png",
		domain.Customization{Name: "Smith", Number: "10", TextColor: "#ffffff"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeSVG, art.ContentType)
	assert.Equal(t, CompositeFilename, art.Filename)

	doc := parse(t, art.Data)
	assert.Equal(t, "800", doc.width)
	assert.Equal(t, "1000", doc.height)
	assert.Equal(t, []string{"10", "SMITH"}, doc.texts)
	assert.Equal(t, []string{"translate(400,400)", "translate(400,336)"}, doc.transforms)
	assert.Equal(t, 1, doc.images)
	assert.Equal(t, 1, doc.styles)
	assert.Contains(t, string(art.Data), "data:image/png;base64,")
	assert.Contains(t, string(art.Data), `font-family="KidsTee, Arial, sans-serif"`)
}

func TestTemplate_Anchors(t *testing.T) {
	e := New(nil, nil, domain.DefaultLimits(), "")

	art, err := e.Template(context.Background(), domain.Customization{Name: "jones", Number: "7"}, Options{Guides: true})
	require.NoError(t, err)
	assert.Equal(t, TemplateFilename, art.Filename)

	doc := parse(t, art.Data)
	assert.Equal(t, "511", doc.width)
	assert.Equal(t, "438", doc.height)
	assert.Equal(t, []string{"7", "JONES"}, doc.texts)
	assert.Equal(t, []string{"translate(255.5,334)", "translate(255.5,53.5)"}, doc.transforms)
	assert.Equal(t, 0, doc.styles)

	s := string(art.Data)
	assert.Contains(t, s, `id="area-guides"`)
	assert.Contains(t, s, "Name Area: 107×511px")
	assert.Contains(t, s, "Number Area: 354×511px")
	assert.Contains(t, s, `font-family="Arial, sans-serif"`)
	assert.Contains(t, s, `font-size="280"`)
	assert.Contains(t, s, `letter-spacing="0.15em"`)
}

func TestTemplate_WithoutGuides(t *testing.T) {
	art, err := New(nil, nil, domain.DefaultLimits(), "").Template(context.Background(), domain.Customization{}, Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(art.Data), "area-guides")
	assert.Empty(t, parse(t, art.Data).texts)
}

func TestTemplate_EscapesText(t *testing.T) {
	art, err := New(nil, nil, domain.DefaultLimits(), "").Template(context.Background(),
		domain.Customization{Name: `a<b&"c"`, Number: "1"}, Options{})
	require.NoError(t, err)

	s := string(art.Data)
	assert.NotContains(t, s, `A<B`)
	assert.Contains(t, s, "A&lt;B&amp;")
	assert.Equal(t, []string{"1", `A<B&"C"`}, parse(t, art.Data).texts)
}

func TestTemplate_RejectsColourInjection(t *testing.T) {
	_, err := New(nil, nil, domain.DefaultLimits(), "").Template(context.Background(),
		domain.Customization{Number: "1", TextColor: `#fff" onload="x`}, Options{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestComposite_Idempotent(t *testing.T) {
	f := &stubFetcher{data: shirt(t, 320, 400)}
	e := New(stubFont{data: []byte("font")}, f, domain.DefaultLimits(), "KidsTee")
	cust := domain.Customization{Name: "Lee", Number: "23", TextColor: "#FF0000"}

	a, err := e.Composite(context.Background(), "https://x/back.png", cust, Options{Guides: true})
	require.NoError(t, err)
	b, err := e.Composite(context.Background(), "https://x/back.png", cust, Options{Guides: true})
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestFontFailureIsNotFatal(t *testing.T) {
	f := &stubFetcher{data: shirt(t, 100, 120)}
	e := New(stubFont{err: errors.New("font server down")}, f, domain.DefaultLimits(), "KidsTee")

	art, err := e.Composite(context.Background(), "https://x/back.png", domain.Customization{Number: "5"}, Options{})
	require.NoError(t, err)
	doc := parse(t, art.Data)
	assert.Equal(t, 0, doc.styles)
	assert.Equal(t, []string{"5"}, doc.texts)
	assert.Contains(t, string(art.Data), `font-family="Arial, sans-serif"`)
}

func TestImageFailureIsFatal(t *testing.T) {
	e := New(stubFont{data: []byte("font")}, &stubFetcher{err: errors.New("404")}, domain.DefaultLimits(), "")
	art, err := e.Composite(context.Background(), "https://x/back.png", domain.Customization{Number: "5"}, Options{})
	assert.True(t, errors.Is(err, domain.ErrImageFetch))
	assert.Empty(t, art.Data)

	e = New(nil, &stubFetcher{data: []byte("<html>not an image</html>")}, domain.DefaultLimits(), "")
	_, err = e.Composite(context.Background(), "https://x/back.png", domain.Customization{}, Options{})
	assert.True(t, errors.Is(err, domain.ErrImageFetch))

	_, err = New(nil, nil, domain.DefaultLimits(), "").Composite(context.Background(), "https://x/back.png", domain.Customization{}, Options{})
	assert.True(t, errors.Is(err, domain.ErrNotConfigured))
}

func TestCleanFamily(t *testing.T) {
	assert.Equal(t, "Kids-Tee", cleanFamily(` Kids-Tee';} `))
	assert.Equal(t, "KidsTee", New(nil, nil, domain.DefaultLimits(), "  ").family)
}

// portraitPhoneJPEG is a w x h JPEG whose EXIF orientation 6 asks viewers to
// rotate it a quarter turn.
func portraitPhoneJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 0x40, A: 0xff}), nil))
	raw := buf.Bytes()

	var exif bytes.Buffer
	exif.WriteString("Exif\x00\x00MM\x00\x2a\x00\x00\x00\x08")
	_ = binary.Write(&exif, binary.BigEndian, []uint16{1, 0x0112, 3})
	_ = binary.Write(&exif, binary.BigEndian, []uint32{1})
	_ = binary.Write(&exif, binary.BigEndian, []uint16{6, 0})
	_ = binary.Write(&exif, binary.BigEndian, []uint32{0})

	var out bytes.Buffer
	out.Write(raw[:2])
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(exif.Len()+2))
	out.Write(exif.Bytes())
	out.Write(raw[2:])
	return out.Bytes()
}

func TestComposite_MatchesRasterOnRotatedPhoto(t *testing.T) {
	src := portraitPhoneJPEG(t, 80, 100)
	cust := domain.Customization{Name: "Ito", Number: "4"}

	out, err := raster.New(nil, nil, domain.DefaultLimits()).Composite(context.Background(), src, cust)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 80, cfg.Height)

	art, err := New(nil, &stubFetcher{data: src}, domain.DefaultLimits(), "").
		Composite(context.Background(), "https://x/phone.jpg", cust, Options{})
	require.NoError(t, err)
	doc := parse(t, art.Data)
	assert.Equal(t, "100", doc.width)
	assert.Equal(t, "80", doc.height)
	assert.Equal(t, []string{"translate(50,32)", "translate(50,24)"}, doc.transforms)
	// the embedded photo is upright for viewers that ignore EXIF
	assert.Contains(t, string(art.Data), "data:image/png;base64,")
	assert.NotContains(t, string(art.Data), "data:image/jpeg")
}

func TestComposite_FetchTimeoutKeepsCause(t *testing.T) {
	e := New(nil, &stubFetcher{err: context.DeadlineExceeded}, domain.DefaultLimits(), "")
	_, err := e.Composite(context.Background(), "https://x/back.png", domain.Customization{}, Options{})
	assert.ErrorIs(t, err, domain.ErrImageFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
