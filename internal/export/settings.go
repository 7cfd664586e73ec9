// Package export composes a sequence of still images into a continuous
// encoded video: transitions between images, a Ken Burns effect over each
// image, and an encoder/muxer stage writing the container file.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/transition"
)

// VidStd selects the broadcast frame rate family.
type VidStd int

const (
	PAL  VidStd = iota // 25 fps
	NTSC               // 29.97 fps
)

// FrameRate returns the standard's frames per second.
func (s VidStd) FrameRate() float64 {
	if s == NTSC {
		return 29.97
	}
	return 25
}

// VidType is the output resolution class.
type VidType int

const (
	QVGA    VidType = iota // 320x180
	VGA                    // 640x480
	HVGA                   // 480x270
	SVGA                   // 800x600
	XVGA                   // 1024x576
	HDTV                   // 1280x720
	BLUERAY                // 1920x1080
	UHD4K                  // 3840x2160
)

// Size returns the pixel dimensions of the class.
func (t VidType) Size() (int, int) {
	switch t {
	case QVGA:
		return 320, 180
	case VGA:
		return 640, 480
	case HVGA:
		return 480, 270
	case SVGA:
		return 800, 600
	case XVGA:
		return 1024, 576
	case HDTV:
		return 1280, 720
	case BLUERAY:
		return 1920, 1080
	case UHD4K:
		return 3840, 2160
	default:
		return 1280, 720
	}
}

// VidBitRate is the output bit rate class.
type VidBitRate int

const (
	VBR04 VidBitRate = iota // 400 kbit/s
	VBR10                   // 1 Mbit/s
	VBR15                   // 1.5 Mbit/s
	VBR25                   // 2.5 Mbit/s
	VBR40                   // 4 Mbit/s
	VBR80                   // 8 Mbit/s
)

// BitsPerSecond returns the class value in bits per second.
func (b VidBitRate) BitsPerSecond() int {
	switch b {
	case VBR04:
		return 400000
	case VBR10:
		return 1000000
	case VBR15:
		return 1500000
	case VBR25:
		return 2500000
	case VBR40:
		return 4000000
	case VBR80:
		return 8000000
	default:
		return 1500000
	}
}

// VidFormat selects the container; the muxer picks the format from the
// output file extension.
type VidFormat int

const (
	MP4 VidFormat = iota
	MKV
	AVI
	MPG
)

// Extension returns the container file extension without the dot.
func (f VidFormat) Extension() string {
	switch f {
	case MKV:
		return "mkv"
	case AVI:
		return "avi"
	case MPG:
		return "mpg"
	default:
		return "mp4"
	}
}

var vidTypeNames = map[VidType]string{
	QVGA: "QVGA", VGA: "VGA", HVGA: "HVGA", SVGA: "SVGA",
	XVGA: "XVGA", HDTV: "HDTV", BLUERAY: "BLUERAY", UHD4K: "UHD4K",
}

func (t VidType) String() string {
	if n, ok := vidTypeNames[t]; ok {
		return n
	}
	return "HDTV"
}

// ParseVidType resolves a resolution class by name.
func ParseVidType(name string) (VidType, error) {
	for t, n := range vidTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return HDTV, fmt.Errorf("unknown video type %q", name)
}

func (s VidStd) String() string {
	if s == NTSC {
		return "NTSC"
	}
	return "PAL"
}

// ParseVidStd resolves a broadcast standard by name.
func ParseVidStd(name string) (VidStd, error) {
	switch {
	case strings.EqualFold(name, "PAL"):
		return PAL, nil
	case strings.EqualFold(name, "NTSC"):
		return NTSC, nil
	}
	return PAL, fmt.Errorf("unknown video standard %q", name)
}

var vidBitRateNames = map[VidBitRate]string{
	VBR04: "VBR04", VBR10: "VBR10", VBR15: "VBR15",
	VBR25: "VBR25", VBR40: "VBR40", VBR80: "VBR80",
}

func (b VidBitRate) String() string {
	if n, ok := vidBitRateNames[b]; ok {
		return n
	}
	return "VBR15"
}

// ParseVidBitRate resolves a bit rate class by name.
func ParseVidBitRate(name string) (VidBitRate, error) {
	for b, n := range vidBitRateNames {
		if strings.EqualFold(n, name) {
			return b, nil
		}
	}
	return VBR15, fmt.Errorf("unknown bit rate %q", name)
}

func (f VidFormat) String() string {
	return strings.ToUpper(f.Extension())
}

// ParseVidFormat resolves a container by name or extension.
func ParseVidFormat(name string) (VidFormat, error) {
	for _, f := range []VidFormat{MP4, MKV, AVI, MPG} {
		if strings.EqualFold(f.Extension(), name) {
			return f, nil
		}
	}
	return MP4, fmt.Errorf("unknown container format %q", name)
}

// ConflictRule decides what happens when the output file already exists.
type ConflictRule int

const (
	Overwrite ConflictRule = iota
	AutoRename
)

func (c ConflictRule) String() string {
	if c == AutoRename {
		return "rename"
	}
	return "overwrite"
}

// ParseConflictRule resolves a conflict rule by name.
func ParseConflictRule(name string) (ConflictRule, error) {
	switch {
	case strings.EqualFold(name, "overwrite"):
		return Overwrite, nil
	case strings.EqualFold(name, "rename"):
		return AutoRename, nil
	}
	return Overwrite, fmt.Errorf("unknown conflict rule %q", name)
}

// Settings is the immutable configuration of one export job. Read once at
// pipeline start; changing it requires restarting the pipeline.
type Settings struct {
	Images    []string // ordered input image paths
	OutputDir string
	BaseName  string // output file name without extension

	Type     VidType
	Std      VidStd
	BitRate  VidBitRate
	Codec    string // encoder name, e.g. "libx264" or "mjpeg"
	Format   VidFormat
	Conflict ConflictRule

	Delay            int // seconds each image is shown (effect duration)
	Transition       transition.Kind
	TransitionFrames int
	Effect           effect.Kind
	Seed             int64 // non-zero pins Random kind resolution

	EncoderBin string // external encoder binary, default "ffmpeg"
}

// DefaultSettings returns a PAL HDTV mp4 export with a 2s delay per image.
func DefaultSettings() Settings {
	return Settings{
		Type:             HDTV,
		Std:              PAL,
		BitRate:          VBR15,
		Codec:            "libx264",
		Format:           MP4,
		Delay:            2,
		Transition:       transition.None,
		TransitionFrames: transition.DefaultFrames,
		Effect:           effect.None,
		EncoderBin:       "ffmpeg",
	}
}

// FramesPerImage is the effect frame budget: delay seconds at the
// standard's frame rate.
func (s Settings) FramesPerImage() int {
	n := int(float64(s.Delay) * s.Std.FrameRate())
	if n < 1 {
		n = 1
	}
	return n
}

// OutputFile resolves the final output path, honoring the conflict rule.
func (s Settings) OutputFile() (string, error) {
	base := s.BaseName
	if base == "" {
		base = "videoslideshow"
	}
	path := filepath.Join(s.OutputDir, base+"."+s.Format.Extension())

	if s.Conflict == Overwrite {
		return path, nil
	}
	for i := 0; ; i++ {
		candidate := path
		if i > 0 {
			candidate = filepath.Join(s.OutputDir, fmt.Sprintf("%s_%d.%s", base, i, s.Format.Extension()))
		}
		if _, err := os.Stat(candidate); err != nil {
			return candidate, nil
		}
	}
}

// Validate rejects settings no job could run with.
func (s Settings) Validate() error {
	if len(s.Images) == 0 {
		return fmt.Errorf("no input images configured")
	}
	if s.Delay < 1 {
		return fmt.Errorf("delay must be at least 1 second")
	}
	return nil
}
