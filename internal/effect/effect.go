// Package effect renders Ken Burns style pan and zoom sequences over a
// single still image: a virtual camera window interpolates linearly from a
// start rectangle to an end rectangle over a fixed frame count.
package effect

import "fmt"

// Kind identifies an effect style.
type Kind int

const (
	None Kind = iota
	KenBurnsZoomIn
	KenBurnsZoomOut
	KenBurnsPanLR
	KenBurnsPanRL
	KenBurnsPanTB
	KenBurnsPanBT
	Random
)

var kindNames = map[Kind]string{
	None:            "none",
	KenBurnsZoomIn:  "kenburns-zoom-in",
	KenBurnsZoomOut: "kenburns-zoom-out",
	KenBurnsPanLR:   "kenburns-pan-lr",
	KenBurnsPanRL:   "kenburns-pan-rl",
	KenBurnsPanTB:   "kenburns-pan-tb",
	KenBurnsPanBT:   "kenburns-pan-bt",
	Random:          "random",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Kinds returns every kind in declaration order.
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
	return None, fmt.Errorf("unknown effect kind %q", name)
}
