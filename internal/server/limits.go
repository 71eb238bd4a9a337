package server

const (
	maxJSONBodyBytes = int64(1 << 20) // 1 MiB
	maxInputBytes    = 64 * 1024      // 64 KiB

	minCols = 2
	minRows = 1
	maxCols = 1000
	maxRows = 500
)

func validateDims(rows, cols int) bool {
	if cols < minCols || cols > maxCols {
		return false
	}
	if rows < minRows || rows > maxRows {
		return false
	}
	return true
}
