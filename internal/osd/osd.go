// Package osd renders textual metadata overlays (file name, date, rating,
// camera fields) onto composited frames before they are encoded or streamed.
package osd

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gopkg.in/yaml.v3"
)

// Position anchors the overlay block in a frame corner.
type Position int

const (
	BottomLeft Position = iota
	BottomRight
	TopLeft
	TopRight
)

// Color is an RGBA color persisted as a "#RRGGBBAA" hex string so the
// config file stays hand-editable.
type Color color.RGBA

func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// ParseColor accepts "#RRGGBB" (opaque) or "#RRGGBBAA".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(s, "#")
	var c Color
	switch len(hex) {
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		c.A = 255
	case 8:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A); err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
	default:
		return Color{}, fmt.Errorf("invalid color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	return c, nil
}

// MarshalYAML encodes the color as its hex string.
func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML decodes a hex string color.
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON encodes the color as its hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a hex string color.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Properties selects which metadata fields the overlay shows and how the
// block is drawn. Built once per export/stream session from persisted
// settings and read-only during the compositing loop.
type Properties struct {
	ShowName      bool     `yaml:"show_name"`
	ShowDate      bool     `yaml:"show_date"`
	ShowRating    bool     `yaml:"show_rating"`
	ShowMakeModel bool     `yaml:"show_make_model"`
	ShowLens      bool     `yaml:"show_lens"`
	ShowAperture  bool     `yaml:"show_aperture"`
	ShowFocal     bool     `yaml:"show_focal"`
	ShowExposure  bool     `yaml:"show_exposure"`
	ShowTags      bool     `yaml:"show_tags"`
	ShowComment   bool     `yaml:"show_comment"`
	Position      Position `yaml:"position"`
	TextColor     Color    `yaml:"text_color"`
	Background    Color    `yaml:"background"`
	Opacity       float64  `yaml:"opacity"`
}

// DefaultProperties shows name and date in the bottom-left corner.
func DefaultProperties() Properties {
	return Properties{
		ShowName:   true,
		ShowDate:   true,
		Position:   BottomLeft,
		TextColor:  Color{R: 255, G: 255, B: 255, A: 255},
		Background: Color{A: 170},
		Opacity:    0.85,
	}
}

// MetaProvider supplies metadata fields for an item, keyed by field name
// ("name", "date", "rating", "make", "model", "lens", "aperture", "focal",
// "exposure", "tags", "comment"). The compositor treats the source as an
// opaque read-only map.
type MetaProvider interface {
	ItemInfo(path string) (map[string]string, error)
}

// Compositor draws the configured overlay block onto frames.
type Compositor struct {
	props    Properties
	provider MetaProvider
	face     font.Face
	padding  int
}

// NewCompositor builds a compositor for one session.
func NewCompositor(props Properties, provider MetaProvider) *Compositor {
	return &Compositor{
		props:    props,
		provider: provider,
		face:     basicfont.Face7x13,
		padding:  6,
	}
}

// lines assembles the text lines for an item according to the enabled fields.
func (c *Compositor) lines(info map[string]string) []string {
	var out []string
	add := func(enabled bool, key, prefix string) {
		if !enabled {
			return
		}
		if v, ok := info[key]; ok && v != "" {
			out = append(out, prefix+v)
		}
	}

	add(c.props.ShowName, "name", "")
	add(c.props.ShowDate, "date", "")
	add(c.props.ShowRating, "rating", "Rating: ")
	if c.props.ShowMakeModel {
		mm := strings.TrimSpace(info["make"] + " " + info["model"])
		if mm != "" {
			out = append(out, mm)
		}
	}
	add(c.props.ShowLens, "lens", "")
	add(c.props.ShowAperture, "aperture", "f/")
	add(c.props.ShowFocal, "focal", "")
	add(c.props.ShowExposure, "exposure", "")
	add(c.props.ShowTags, "tags", "Tags: ")
	add(c.props.ShowComment, "comment", "")
	return out
}

// Apply draws the overlay for the given item onto img in place. img is the
// compositor's own working copy of the frame; frames already handed
// downstream are never touched.
func (c *Compositor) Apply(img *image.RGBA, itemPath string) error {
	info, err := c.provider.ItemInfo(itemPath)
	if err != nil {
		return fmt.Errorf("metadata lookup for %s: %w", itemPath, err)
	}

	lines := c.lines(info)
	if len(lines) == 0 {
		return nil
	}

	lineHeight := c.face.Metrics().Height.Ceil()
	blockW := 0
	d := &font.Drawer{Face: c.face}
	for _, line := range lines {
		if w := d.MeasureString(line).Ceil(); w > blockW {
			blockW = w
		}
	}
	blockW += c.padding * 2
	blockH := lineHeight*len(lines) + c.padding*2

	b := img.Bounds()
	var x, y int
	switch c.props.Position {
	case BottomLeft:
		x, y = b.Min.X+c.padding, b.Max.Y-blockH-c.padding
	case BottomRight:
		x, y = b.Max.X-blockW-c.padding, b.Max.Y-blockH-c.padding
	case TopLeft:
		x, y = b.Min.X+c.padding, b.Min.Y+c.padding
	case TopRight:
		x, y = b.Max.X-blockW-c.padding, b.Min.Y+c.padding
	}

	blendRect(img, image.Rect(x, y, x+blockW, y+blockH), color.RGBA(c.props.Background), c.props.Opacity)

	for i, line := range lines {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.RGBA(c.props.TextColor)),
			Face: c.face,
			Dot: fixed.Point26_6{
				X: fixed.I(x + c.padding),
				Y: fixed.I(y + c.padding + (i+1)*lineHeight - 3),
			},
		}
		drawer.DrawString(line)
	}
	return nil
}

// SortedFieldNames lists the metadata keys the compositor understands, for
// the settings surface.
func SortedFieldNames() []string {
	keys := []string{"name", "date", "rating", "make", "model", "lens", "aperture", "focal", "exposure", "tags", "comment"}
	sort.Strings(keys)
	return keys
}
