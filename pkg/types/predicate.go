package types

import "storemy/pkg/primitives"

type Predicate = primitives.Predicate

const (
	Equals             = primitives.Equals
	LessThan           = primitives.LessThan
	GreaterThan        = primitives.GreaterThan
	LessThanOrEqual    = primitives.LessThanOrEqual
	GreaterThanOrEqual = primitives.GreaterThanOrEqual
	NotEqual           = primitives.NotEqual
	Like               = primitives.Like
)
