package topology

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownTopology              = errors.New("unknown topology")
	ErrAmbiguousTopology            = errors.New("ambiguous topology name")
	ErrUnknownLayer                 = errors.New("unknown layer")
	ErrHierarchicalLayerUnsupported = errors.New("hierarchical layers are not supported")
	ErrFeatureTypeMismatch          = errors.New("feature type mismatch")
	ErrUnsupportedGeometry          = errors.New("unsupported geometry")
	ErrCoincidentNodeConflict       = errors.New("coincident node conflict")
	ErrSelfIntersection             = errors.New("self intersection")
	ErrConstraintViolation          = errors.New("topology constraint violation")
	ErrPrimitiveInUse               = errors.New("primitive in use")
	ErrNotFound                     = errors.New("not found")
	ErrReadOnly                     = errors.New("read-only transaction")
)
