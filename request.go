package cookie

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/render"
)

// MinCookieSize is the smallest width and height a cookie source may have.
// Smaller sources are ignored: reservations succeed without touching the
// atlas and fetches return a zero Result.
const MinCookieSize = 2

// Kind is the light type a cookie is projected by.
type Kind uint8

const (
	// KindPlanar is a 2D cookie of a spot or directional light.
	KindPlanar Kind = iota

	// KindArea is a 2D cookie of an area light. It is filtered into a mip
	// chain and comes with an emissive texture.
	KindArea

	// KindCube is a cube cookie of a point light, stored as an octahedral
	// map.
	KindCube
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPlanar:
		return "planar"
	case KindArea:
		return "area"
	case KindCube:
		return "cube"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Shape is the source arrangement of a request.
type Shape uint8

const (
	// ShapePlain is a cookie alone (planar and cube kinds).
	ShapePlain Shape = iota

	// ShapeWithIES is a cookie masked by an IES profile texture (planar and
	// cube kinds).
	ShapeWithIES

	// ShapePair is an area cookie alone, fetched with its emissive texture.
	ShapePair

	// ShapePairWithIES is an area cookie masked by an IES profile texture,
	// fetched with its emissive texture.
	ShapePairWithIES
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapePlain:
		return "plain"
	case ShapeWithIES:
		return "with-ies"
	case ShapePair:
		return "pair"
	case ShapePairWithIES:
		return "pair-with-ies"
	default:
		return fmt.Sprintf("Shape(%d)", s)
	}
}

// Request describes the cookie of one light. Build requests with Planar,
// PlanarWithIES, Area, AreaWithIES, Cube and CubeWithIES.
type Request struct {
	Kind   Kind
	Shape  Shape
	Cookie *render.Texture
	IES    *render.Texture
}

// Planar requests the 2D cookie c.
func Planar(c *render.Texture) Request {
	return Request{Kind: KindPlanar, Shape: ShapePlain, Cookie: c}
}

// PlanarWithIES requests the 2D cookie c masked by ies.
func PlanarWithIES(c, ies *render.Texture) Request {
	return Request{Kind: KindPlanar, Shape: ShapeWithIES, Cookie: c, IES: ies}
}

// Area requests the area-light cookie c.
func Area(c *render.Texture) Request {
	return Request{Kind: KindArea, Shape: ShapePair, Cookie: c}
}

// AreaWithIES requests the area-light cookie c masked by ies.
func AreaWithIES(c, ies *render.Texture) Request {
	return Request{Kind: KindArea, Shape: ShapePairWithIES, Cookie: c, IES: ies}
}

// Cube requests the point-light cube cookie c.
func Cube(c *render.Texture) Request {
	return Request{Kind: KindCube, Shape: ShapePlain, Cookie: c}
}

// CubeWithIES requests the point-light cube cookie c masked by the IES
// cube ies.
func CubeWithIES(c, ies *render.Texture) Request {
	return Request{Kind: KindCube, Shape: ShapeWithIES, Cookie: c, IES: ies}
}

// HasIES reports whether the request carries an IES texture.
func (r Request) HasIES() bool {
	return r.Shape == ShapeWithIES || r.Shape == ShapePairWithIES
}

// Validate checks that the shape fits the kind and that every source the
// shape names is present.
func (r Request) Validate() error {
	var ok bool
	switch r.Kind {
	case KindPlanar, KindCube:
		ok = r.Shape == ShapePlain || r.Shape == ShapeWithIES
	case KindArea:
		ok = r.Shape == ShapePair || r.Shape == ShapePairWithIES
	}
	if !ok {
		return fmt.Errorf("%w: %s cookie with %s shape", ErrInvalidRequest, r.Kind, r.Shape)
	}
	if r.Cookie == nil || (r.HasIES() && r.IES == nil) {
		return fmt.Errorf("%w: missing source texture", ErrInvalidRequest)
	}
	if r.Kind == KindCube {
		for _, tex := range r.sources() {
			if tex.Dimension() != render.DimensionCube {
				return fmt.Errorf("%w: cube cookie from %s texture", ErrInvalidRequest, tex.Dimension())
			}
		}
	}
	return nil
}

// sources returns the textures the cached content is derived from. Pairs
// are returned primary first, whatever the argument order.
func (r Request) sources() []*render.Texture {
	if r.HasIES() {
		primary, secondary := atlas.OrderPair(r.Cookie, r.IES)
		return []*render.Texture{primary, secondary}
	}
	return []*render.Texture{r.Cookie}
}

// Identity returns the atlas key of the request. It only depends on the
// sources, so two lights sharing a cookie share an atlas entry.
func (r Request) Identity() atlas.ID {
	if r.HasIES() {
		return atlas.PairID(r.Cookie, r.IES)
	}
	return atlas.TextureID(r.Cookie)
}

// tooSmall reports whether a source is below MinCookieSize.
func (r Request) tooSmall() bool {
	for _, tex := range r.sources() {
		if tex.Width() < MinCookieSize || tex.Height() < MinCookieSize {
			return true
		}
	}
	return false
}

// footprint returns the atlas size of the request, in texels. Pairs take
// the larger width and the larger height of their sources; cubes take
// 2*max(cubeResolution, face size) on both axes.
func (r Request) footprint(cubeResolution int) (width, height int) {
	for _, tex := range r.sources() {
		width = max(width, tex.Width())
		height = max(height, tex.Height())
	}
	if r.Kind == KindCube {
		size := 2 * max(cubeResolution, width)
		return size, size
	}
	return width, height
}

// Result is what a light needs to sample its cookie.
type Result struct {
	// ScaleBias maps the light's cookie UVs into the atlas:
	// (scaleX, scaleY, biasX, biasY). Zero when the cookie has no entry.
	ScaleBias mgl32.Vec4

	// Emissive is the unfiltered source of area cookies, used to draw the
	// emitting surface. Nil for the other kinds.
	Emissive *render.Texture
}

// IsZero reports whether r carries no atlas entry.
func (r Result) IsZero() bool {
	return r.ScaleBias == mgl32.Vec4{}
}
