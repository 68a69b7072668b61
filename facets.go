package scene

import (
	"errors"
	"fmt"
	"slices"
)

// Facet views. Each view wraps the same *SceneObject and is only handed out
// by AsA when the object's bitmask carries the facet's bit.
type (
	Node              struct{ *SceneObject }
	Camera            struct{ *SceneObject }
	EnvMap            struct{ *SceneObject }
	Geometry          struct{ *SceneObject }
	Light             struct{ *SceneObject }
	Joint             struct{ *SceneObject }
	Shader            struct{ *SceneObject }
	RootShader        struct{ *SceneObject }
	Material          struct{ *SceneObject }
	DwaBaseLayerable  struct{ *SceneObject }
	Displacement      struct{ *SceneObject }
	VolumeShader      struct{ *SceneObject }
	Map               struct{ *SceneObject }
	NormalMap         struct{ *SceneObject }
	GeometrySet       struct{ *SceneObject }
	Layer             struct{ *SceneObject }
	ShadowReceiverSet struct{ *SceneObject }
	LightSet          struct{ *SceneObject }
	ShadowSet         struct{ *SceneObject }
	LightFilter       struct{ *SceneObject }
	LightFilterSet    struct{ *SceneObject }
	RenderOutput      struct{ *SceneObject }
	UserData          struct{ *SceneObject }
	Metadata          struct{ *SceneObject }
	TraceSet          struct{ *SceneObject }
	DisplayFilter     struct{ *SceneObject }
)

// Facet is the set of view types AsA can produce.
type Facet interface {
	Node | Camera | EnvMap | Geometry | Light | Joint |
		Shader | RootShader | Material | DwaBaseLayerable | Displacement | VolumeShader | Map | NormalMap |
		GeometrySet | Layer | ShadowReceiverSet | LightSet | ShadowSet | LightFilter | LightFilterSet |
		RenderOutput | UserData | Metadata | TraceSet | DisplayFilter

	FacetInterface() Interface
}

// AsA returns the F view of o when o satisfies F's interface. It never fails:
// a nil object or a missing capability yields the zero view and false.
//
//	if cam, ok := scene.AsA[scene.Camera](obj); ok {
//		near, _ := cam.Near()
//	}
func AsA[F Facet](o *SceneObject) (F, bool) {
	var zero F
	if o == nil || !o.IsA(zero.FacetInterface()) {
		return zero, false
	}
	return F(struct{ *SceneObject }{o}), true
}

func (Node) FacetInterface() Interface              { return InterfaceNode }
func (Camera) FacetInterface() Interface            { return InterfaceCamera }
func (EnvMap) FacetInterface() Interface            { return InterfaceEnvMap }
func (Geometry) FacetInterface() Interface          { return InterfaceGeometry }
func (Light) FacetInterface() Interface             { return InterfaceLight }
func (Joint) FacetInterface() Interface             { return InterfaceJoint }
func (Shader) FacetInterface() Interface            { return InterfaceShader }
func (RootShader) FacetInterface() Interface        { return InterfaceRootShader }
func (Material) FacetInterface() Interface          { return InterfaceMaterial }
func (DwaBaseLayerable) FacetInterface() Interface  { return InterfaceDwaBaseLayerable }
func (Displacement) FacetInterface() Interface      { return InterfaceDisplacement }
func (VolumeShader) FacetInterface() Interface      { return InterfaceVolumeShader }
func (Map) FacetInterface() Interface               { return InterfaceMap }
func (NormalMap) FacetInterface() Interface         { return InterfaceNormalMap }
func (GeometrySet) FacetInterface() Interface       { return InterfaceGeometrySet }
func (Layer) FacetInterface() Interface             { return InterfaceLayer }
func (ShadowReceiverSet) FacetInterface() Interface { return InterfaceShadowReceiverSet }
func (LightSet) FacetInterface() Interface          { return InterfaceLightSet }
func (ShadowSet) FacetInterface() Interface         { return InterfaceShadowSet }
func (LightFilter) FacetInterface() Interface       { return InterfaceLightFilter }
func (LightFilterSet) FacetInterface() Interface    { return InterfaceLightFilterSet }
func (RenderOutput) FacetInterface() Interface      { return InterfaceRenderOutput }
func (UserData) FacetInterface() Interface          { return InterfaceUserData }
func (Metadata) FacetInterface() Interface          { return InterfaceMetadata }
func (TraceSet) FacetInterface() Interface          { return InterfaceTraceSet }
func (DisplayFilter) FacetInterface() Interface     { return InterfaceDisplayFilter }

// Well-known attribute names read by facet accessors.
const (
	AttrNodeXform    = "node_xform"
	AttrNear         = "near"
	AttrFar          = "far"
	AttrOn           = "on"
	AttrColor        = "color"
	AttrIntensity    = "intensity"
	AttrExposure     = "exposure"
	AttrLabel        = "label"
	AttrStatic       = "static"
	AttrActive       = "active"
	AttrGeometries   = "geometries"
	AttrLights       = "lights"
	AttrLightFilters = "light_filters"
)

// Transform returns the node to world transform at ts.
func (n Node) Transform(ts Timestep) (Mat4d, error) {
	return getNamed[Mat4d](n.SceneObject, AttrNodeXform, ts)
}

// SetTransform stores the node to world transform at ts.
func (n Node) SetTransform(xform Mat4d, ts Timestep) error {
	return setNamed(n.SceneObject, AttrNodeXform, xform, ts)
}

// Transform returns the camera to world transform at ts.
func (c Camera) Transform(ts Timestep) (Mat4d, error) {
	return Node(c).Transform(ts)
}

// Near returns the near clipping plane distance.
func (c Camera) Near() (Float, error) {
	return getNamed[Float](c.SceneObject, AttrNear, TimestepBegin)
}

// Far returns the far clipping plane distance.
func (c Camera) Far() (Float, error) {
	return getNamed[Float](c.SceneObject, AttrFar, TimestepBegin)
}

// SetNear stores the near plane inside its own update.
func (c Camera) SetNear(near Float) error {
	return c.Update(func() error {
		return setNamed(c.SceneObject, AttrNear, near, TimestepBegin)
	})
}

// SetFar stores the far plane inside its own update.
func (c Camera) SetFar(far Float) error {
	return c.Update(func() error {
		return setNamed(c.SceneObject, AttrFar, far, TimestepBegin)
	})
}

// IsStatic reports whether the geometry never changes across frames.
func (g Geometry) IsStatic() (bool, error) {
	return getNamed[Bool](g.SceneObject, AttrStatic, TimestepBegin)
}

// IsOn reports whether the light contributes to the render.
func (l Light) IsOn() (bool, error) {
	return getNamed[Bool](l.SceneObject, AttrOn, TimestepBegin)
}

// Color returns the light color.
func (l Light) Color() (Rgb, error) {
	return getNamed[Rgb](l.SceneObject, AttrColor, TimestepBegin)
}

// Intensity returns the light intensity multiplier.
func (l Light) Intensity() (Float, error) {
	return getNamed[Float](l.SceneObject, AttrIntensity, TimestepBegin)
}

// Exposure returns the light exposure in stops.
func (l Light) Exposure() (Float, error) {
	return getNamed[Float](l.SceneObject, AttrExposure, TimestepBegin)
}

// Label returns the light label used by light path expressions.
func (l Light) Label() (String, error) {
	return getNamed[String](l.SceneObject, AttrLabel, TimestepBegin)
}

// IsOn reports whether the filter is applied.
func (f LightFilter) IsOn() (bool, error) {
	return getNamed[Bool](f.SceneObject, AttrOn, TimestepBegin)
}

// IsActive reports whether the output is written.
func (r RenderOutput) IsActive() (bool, error) {
	return getNamed[Bool](r.SceneObject, AttrActive, TimestepBegin)
}

// Geometries returns the members of the set.
func (s GeometrySet) Geometries() ([]*SceneObject, error) {
	return members(s.SceneObject, AttrGeometries)
}

// Add inserts g into the set. Adding a member twice is a no-op.
func (s GeometrySet) Add(g *SceneObject) error { return addMember(s.SceneObject, AttrGeometries, g) }

// Remove deletes g from the set.
func (s GeometrySet) Remove(g *SceneObject) error {
	return removeMember(s.SceneObject, AttrGeometries, g)
}

// Contains reports whether g is a member.
func (s GeometrySet) Contains(g *SceneObject) (bool, error) {
	return hasMember(s.SceneObject, AttrGeometries, g)
}

// Clear removes every member.
func (s GeometrySet) Clear() error { return clearMembers(s.SceneObject, AttrGeometries) }

// HaveGeometriesChanged reports whether membership changed.
func (s GeometrySet) HaveGeometriesChanged() (bool, error) {
	return s.HasChanged(AttrGeometries)
}

// GeometrySet returns the set view of the layer.
func (l Layer) GeometrySet() GeometrySet { return GeometrySet(l) }

// GeometrySet returns the set view of the shadow receiver set.
func (s ShadowReceiverSet) GeometrySet() GeometrySet { return GeometrySet(s) }

// Lights returns the members of the set.
func (s LightSet) Lights() ([]*SceneObject, error) { return members(s.SceneObject, AttrLights) }

// Add inserts l into the set. Adding a member twice is a no-op.
func (s LightSet) Add(l *SceneObject) error { return addMember(s.SceneObject, AttrLights, l) }

// Remove deletes l from the set.
func (s LightSet) Remove(l *SceneObject) error { return removeMember(s.SceneObject, AttrLights, l) }

// Contains reports whether l is a member.
func (s LightSet) Contains(l *SceneObject) (bool, error) {
	return hasMember(s.SceneObject, AttrLights, l)
}

// Clear removes every member.
func (s LightSet) Clear() error { return clearMembers(s.SceneObject, AttrLights) }

// LightSet returns the set view of the shadow set.
func (s ShadowSet) LightSet() LightSet { return LightSet(s) }

// HaveLightsChanged reports whether membership changed.
func (s ShadowSet) HaveLightsChanged() (bool, error) { return s.HasChanged(AttrLights) }

// LightFilters returns the members of the set.
func (s LightFilterSet) LightFilters() ([]*SceneObject, error) {
	return members(s.SceneObject, AttrLightFilters)
}

// Add inserts f into the set. Adding a member twice is a no-op.
func (s LightFilterSet) Add(f *SceneObject) error {
	return addMember(s.SceneObject, AttrLightFilters, f)
}

// Remove deletes f from the set.
func (s LightFilterSet) Remove(f *SceneObject) error {
	return removeMember(s.SceneObject, AttrLightFilters, f)
}

// Contains reports whether f is a member.
func (s LightFilterSet) Contains(f *SceneObject) (bool, error) {
	return hasMember(s.SceneObject, AttrLightFilters, f)
}

// Clear removes every member.
func (s LightFilterSet) Clear() error { return clearMembers(s.SceneObject, AttrLightFilters) }

func getNamed[T any](o *SceneObject, name string, ts Timestep) (T, error) {
	key, err := KeyFor[T](o.class, name)
	if err != nil {
		var zero T
		return zero, o.attrError("get", name, err)
	}
	return GetAt(o, key, ts)
}

func setNamed[T any](o *SceneObject, name string, value T, ts Timestep) error {
	key, err := KeyFor[T](o.class, name)
	if err != nil {
		return o.attrError("set", name, err)
	}
	return SetAt(o, key, value, ts)
}

var errNotMembership = errors.New("not a scene object sequence")

// members reads a scene object sequence attribute of either sequence tag.
func members(o *SceneObject, name string) ([]*SceneObject, error) {
	v, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	switch list := v.data.(type) {
	case SceneObjectVector:
		return list, nil
	case SceneObjectIndexable:
		return list.Objects(), nil
	default:
		return nil, o.attrError("members", name, fmt.Errorf("%w: %s %s", ErrTypeMismatch, errNotMembership, v.typ))
	}
}

func hasMember(o *SceneObject, name string, obj *SceneObject) (bool, error) {
	v, err := o.Get(name)
	if err != nil {
		return false, err
	}
	switch list := v.data.(type) {
	case SceneObjectVector:
		return slices.Contains(list, obj), nil
	case SceneObjectIndexable:
		return list.Contains(obj), nil
	default:
		return false, o.attrError("contains", name, fmt.Errorf("%w: %s %s", ErrTypeMismatch, errNotMembership, v.typ))
	}
}

// editMembers rewrites a membership attribute inside an update guard.
func editMembers(o *SceneObject, op, name string, edit func([]*SceneObject) []*SceneObject) (err error) {
	attr, err := o.attribute(op, name)
	if err != nil {
		return err
	}
	guard := o.Guard()
	defer func() {
		err = errors.Join(err, guard.Close())
	}()

	current, err := o.GetStored(name, TimestepBegin)
	if err != nil {
		return err
	}
	var next Value
	switch list := current.data.(type) {
	case SceneObjectVector:
		next = Value{typ: attr.typ, data: SceneObjectVector(edit(list))}
	case SceneObjectIndexable:
		next = Value{typ: attr.typ, data: NewSceneObjectIndexable(edit(list.Objects())...)}
	default:
		return o.attrError(op, name, fmt.Errorf("%w: %s %s", ErrTypeMismatch, errNotMembership, current.typ))
	}
	return o.store(op, attr, next, TimestepBegin)
}

func addMember(o *SceneObject, name string, obj *SceneObject) error {
	if obj == nil {
		return o.attrError("add", name, fmt.Errorf("%w: nil member", ErrUnknownSceneObject))
	}
	attr, err := o.attribute("add", name)
	if err != nil {
		return err
	}
	if !obj.IsA(attr.objectType) {
		return o.attrError("add", name, fmt.Errorf("%w: %s is not %s", ErrTypeMismatch, obj.name, attr.objectType))
	}
	return editMembers(o, "add", name, func(list []*SceneObject) []*SceneObject {
		if slices.Contains(list, obj) {
			return list
		}
		return append(list, obj)
	})
}

func removeMember(o *SceneObject, name string, obj *SceneObject) error {
	return editMembers(o, "remove", name, func(list []*SceneObject) []*SceneObject {
		return slices.DeleteFunc(list, func(candidate *SceneObject) bool {
			return candidate == obj
		})
	})
}

func clearMembers(o *SceneObject, name string) error {
	return editMembers(o, "clear", name, func([]*SceneObject) []*SceneObject {
		return nil
	})
}
