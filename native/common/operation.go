package common

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// operationNamespace seeds deterministic operation identifiers so replicas
// replaying the same sequence derive the same ids.
var operationNamespace = uuid.MustParse("6f1c4f0e-8a43-4f57-9a59-3d0f2a6b5c11")

// OperationID derives the identifier of the seq-th operation of an engine.
func OperationID(engine string, seq uint64) string {
	return uuid.NewSHA1(operationNamespace, []byte(fmt.Sprintf("%s/%d", engine, seq))).String()
}

type operationKey struct{}

type operationFrame struct {
	owner  any
	parent *operationFrame
}

// WithOperation marks ctx as running inside an operation of owner. Contexts
// handed to collaborator hooks carry this mark.
func WithOperation(ctx context.Context, owner any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, _ := ctx.Value(operationKey{}).(*operationFrame)
	return context.WithValue(ctx, operationKey{}, &operationFrame{owner: owner, parent: parent})
}

// InOperation reports whether ctx descends from an operation of owner.
func InOperation(ctx context.Context, owner any) bool {
	if ctx == nil {
		return false
	}
	frame, _ := ctx.Value(operationKey{}).(*operationFrame)
	for ; frame != nil; frame = frame.parent {
		if frame.owner == owner {
			return true
		}
	}
	return false
}
