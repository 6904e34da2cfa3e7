// Package heap provides the native heap: a wazero linear memory with a
// first-fit allocator, plus helpers for native strings and identifiers.
//
// Native pointers are 32-bit offsets into the linear memory. Offset 0 is
// never handed out, so it serves as the null pointer.
//
//	h, err := heap.New(ctx, heap.Config{InitialPages: 1, MaxPages: 64})
//	if err != nil {
//	    return err
//	}
//	defer h.Close(ctx)
//
//	ptr, size, err := heap.WriteCString(h, "hello")
//	defer h.Free(ptr, size, 1)
package heap
