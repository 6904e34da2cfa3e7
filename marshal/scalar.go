package marshal

import (
	"fmt"

	xpbridge "github.com/wippyai/xpcom-bridge"
	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/managed"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// lowerScalar unboxes a managed scalar into native bits.
func lowerScalar(env managed.Env, path []string, tag xpt.Tag, val managed.Object) (uint64, error) {
	rule, ok := xpt.RuleFor(tag)
	if !ok || rule.Lower == nil {
		return 0, errors.UnexpectedType(errors.PhaseMarshalIn, path, tag.String())
	}
	unboxed, ok := env.Unbox(val, rule.Managed)
	if !ok {
		return 0, errors.PendingException(errors.PhaseMarshalIn, path)
	}
	bits, ok := rule.Lower(unboxed)
	if !ok {
		return 0, errors.New(errors.PhaseMarshalIn, errors.KindUnexpectedType).
			Path(path...).
			Type(tag.String()).
			Value(unboxed).
			Detail("cannot lower %T", unboxed).
			Build()
	}
	return bits, nil
}

// liftScalar boxes native bits as the tag's managed kind.
func liftScalar(tag xpt.Tag, bits uint64) managed.Object {
	rule, _ := xpt.RuleFor(tag)
	return rule.Lift(bits)
}

// writeScalar stores bits at ptr using the tag's native width.
func writeScalar(mem xpbridge.Memory, ptr uint32, tag xpt.Tag, bits uint64) error {
	switch tag.Size() {
	case 1:
		return mem.WriteU8(ptr, uint8(bits))
	case 2:
		return mem.WriteU16(ptr, uint16(bits))
	case 4:
		return mem.WriteU32(ptr, uint32(bits))
	case 8:
		return mem.WriteU64(ptr, bits)
	}
	return fmt.Errorf("no native width for %s", tag)
}

// readScalar loads the bits of a tag's native width from ptr.
func readScalar(mem xpbridge.Memory, ptr uint32, tag xpt.Tag) (uint64, error) {
	switch tag.Size() {
	case 1:
		v, err := mem.ReadU8(ptr)
		return uint64(v), err
	case 2:
		v, err := mem.ReadU16(ptr)
		return uint64(v), err
	case 4:
		v, err := mem.ReadU32(ptr)
		return uint64(v), err
	case 8:
		return mem.ReadU64(ptr)
	}
	return 0, fmt.Errorf("no native width for %s", tag)
}
