// Package pooling implements the forward pass of a max-pooling layer.
//
// Each output element takes the maximum of a non-overlapping
// PoolingSize x PoolingSize window of its input board and records the
// window offset of that maximum (the selector) for the backward pass.
//
// Tensors are flat float32 buffers laid out as [example][plane][row][col].
// Boards are square. When the input board size is not a multiple of the
// pooling size, padZeros keeps the partial windows at the right and bottom
// edges; their out-of-board cells are never scanned nor selected.
//
// Ties resolve to the first maximum in row-major window order: an equal
// value never displaces an earlier one.
package pooling
