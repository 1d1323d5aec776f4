package interfaces

// Chunk 按固定大小切分切片，最后一块可能不足 size；size<=0 时整体作为一块
func Chunk[T any](slice []T, size int) [][]T {
	if len(slice) == 0 {
		return nil
	}
	if size <= 0 || size >= len(slice) {
		return [][]T{slice}
	}
	res := make([][]T, 0, (len(slice)+size-1)/size)
	for start := 0; start < len(slice); start += size {
		end := start + size
		if end > len(slice) {
			end = len(slice)
		}
		res = append(res, slice[start:end])
	}
	return res
}
