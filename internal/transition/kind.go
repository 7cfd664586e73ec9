// Package transition composites timed visual interpolations between two
// still frames. A Manager is configured with the two images and a kind, then
// drained frame by frame until it reports completion.
package transition

import "fmt"

// Kind identifies a transition style.
type Kind int

const (
	None Kind = iota
	Fade
	ChessBoard
	MeltDown
	SweepLeft
	SweepRight
	Mosaic
	Blobs
	HorizontalLines
	VerticalLines
	CircleOut
	MultiCircleOut
	SpiralIn
	Growing
	SlideL2R
	SlideR2L
	SlideT2B
	SlideB2T
	PushL2R
	PushR2L
	PushT2B
	PushB2T
	SwapL2R
	SwapR2L
	Random
)

var kindNames = map[Kind]string{
	None:            "none",
	Fade:            "fade",
	ChessBoard:      "chessboard",
	MeltDown:        "meltdown",
	SweepLeft:       "sweep-left",
	SweepRight:      "sweep-right",
	Mosaic:          "mosaic",
	Blobs:           "blobs",
	HorizontalLines: "horizontal-lines",
	VerticalLines:   "vertical-lines",
	CircleOut:       "circle-out",
	MultiCircleOut:  "multi-circle-out",
	SpiralIn:        "spiral-in",
	Growing:         "growing",
	SlideL2R:        "slide-l2r",
	SlideR2L:        "slide-r2l",
	SlideT2B:        "slide-t2b",
	SlideB2T:        "slide-b2t",
	PushL2R:         "push-l2r",
	PushR2L:         "push-r2l",
	PushT2B:         "push-t2b",
	PushB2T:         "push-b2t",
	SwapL2R:         "swap-l2r",
	SwapR2L:         "swap-r2l",
	Random:          "random",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Kinds returns every concrete kind plus Random, in declaration order.
// Used by the CLI listing and by Random resolution.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := None; k <= Random; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a configuration name back to a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown transition kind %q", name)
}
