package scene

import (
	"fmt"
	"math/bits"
	"strings"
)

// Interface is a capability bitmask. Each capability owns exactly one bit;
// bit positions are consumed by binary collaborators and must never be
// renumbered, only appended.
type Interface uint32

const (
	InterfaceGeneric           Interface = 1 << 0
	InterfaceGeometrySet       Interface = 1 << 1
	InterfaceLayer             Interface = 1 << 2
	InterfaceLightSet          Interface = 1 << 3
	InterfaceNode              Interface = 1 << 4
	InterfaceCamera            Interface = 1 << 5
	InterfaceEnvMap            Interface = 1 << 6
	InterfaceGeometry          Interface = 1 << 7
	InterfaceLight             Interface = 1 << 8
	InterfaceShader            Interface = 1 << 9
	InterfaceDisplacement      Interface = 1 << 10
	InterfaceMap               Interface = 1 << 11
	InterfaceRootShader        Interface = 1 << 12
	InterfaceMaterial          Interface = 1 << 13
	InterfaceVolumeShader      Interface = 1 << 14
	InterfaceRenderOutput      Interface = 1 << 15
	InterfaceUserData          Interface = 1 << 16
	InterfaceDwaBaseLayerable  Interface = 1 << 17
	InterfaceMetadata          Interface = 1 << 18
	InterfaceLightFilter       Interface = 1 << 19
	InterfaceTraceSet          Interface = 1 << 20
	InterfaceJoint             Interface = 1 << 21
	InterfaceLightFilterSet    Interface = 1 << 22
	InterfaceShadowSet         Interface = 1 << 23
	InterfaceNormalMap         Interface = 1 << 24
	InterfaceDisplayFilter     Interface = 1 << 25
	InterfaceShadowReceiverSet Interface = 1 << 26

	lastInterface = InterfaceShadowReceiverSet
)

// interfaceParents records the capability each interface extends. A class
// declaring an interface satisfies its whole ancestor chain.
var interfaceParents = map[Interface]Interface{
	InterfaceLayer:             InterfaceGeometrySet,
	InterfaceCamera:            InterfaceNode,
	InterfaceEnvMap:            InterfaceNode,
	InterfaceGeometry:          InterfaceNode,
	InterfaceLight:             InterfaceNode,
	InterfaceJoint:             InterfaceNode,
	InterfaceDisplacement:      InterfaceShader,
	InterfaceMap:               InterfaceShader,
	InterfaceNormalMap:         InterfaceShader,
	InterfaceRootShader:        InterfaceShader,
	InterfaceMaterial:          InterfaceRootShader,
	InterfaceVolumeShader:      InterfaceRootShader,
	InterfaceDwaBaseLayerable:  InterfaceMaterial,
	InterfaceShadowSet:         InterfaceLightSet,
	InterfaceShadowReceiverSet: InterfaceGeometrySet,
}

var interfaceNames = map[Interface]string{
	InterfaceGeneric:           "generic",
	InterfaceGeometrySet:       "geometry_set",
	InterfaceLayer:             "layer",
	InterfaceLightSet:          "light_set",
	InterfaceNode:              "node",
	InterfaceCamera:            "camera",
	InterfaceEnvMap:            "env_map",
	InterfaceGeometry:          "geometry",
	InterfaceLight:             "light",
	InterfaceShader:            "shader",
	InterfaceDisplacement:      "displacement",
	InterfaceMap:               "map",
	InterfaceRootShader:        "root_shader",
	InterfaceMaterial:          "material",
	InterfaceVolumeShader:      "volume_shader",
	InterfaceRenderOutput:      "render_output",
	InterfaceUserData:          "user_data",
	InterfaceDwaBaseLayerable:  "dwa_base_layerable",
	InterfaceMetadata:          "metadata",
	InterfaceLightFilter:       "light_filter",
	InterfaceTraceSet:          "trace_set",
	InterfaceJoint:             "joint",
	InterfaceLightFilterSet:    "light_filter_set",
	InterfaceShadowSet:         "shadow_set",
	InterfaceNormalMap:         "normal_map",
	InterfaceDisplayFilter:     "display_filter",
	InterfaceShadowReceiverSet: "shadow_receiver_set",
}

// Closure returns i together with every ancestor capability of each bit it
// carries. The generic capability is always included.
func (i Interface) Closure() Interface {
	out := i | InterfaceGeneric
	for bit := Interface(1); bit != 0 && bit <= lastInterface; bit <<= 1 {
		if i&bit == 0 {
			continue
		}
		for parent, ok := interfaceParents[bit]; ok; parent, ok = interfaceParents[parent] {
			out |= parent
		}
	}
	return out
}

// Has reports whether any bit of other is set in i.
func (i Interface) Has(other Interface) bool {
	return i&other != 0
}

// Single reports whether i carries exactly one capability bit.
func (i Interface) Single() bool {
	return bits.OnesCount32(uint32(i)) == 1
}

// Names lists the capability names carried by i in bit order.
func (i Interface) Names() []string {
	var names []string
	for bit := Interface(1); bit != 0 && bit <= lastInterface; bit <<= 1 {
		if i&bit != 0 {
			names = append(names, interfaceNames[bit])
		}
	}
	return names
}

func (i Interface) String() string {
	if i == 0 {
		return "none"
	}
	parts := i.Names()
	if rest := i &^ (lastInterface<<1 - 1); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseInterface converts a capability name into its bit. Returns 0 when the
// name is unknown.
func ParseInterface(value string) Interface {
	value = strings.ToLower(strings.TrimSpace(value))
	for bit, name := range interfaceNames {
		if name == value {
			return bit
		}
	}
	return 0
}
