package manifest

// Column names in the fixed write order.
const (
	ColTimestamp      = "timestamp"
	ColM1Rows         = "matrix 1 rows"
	ColM1Cols         = "matrix 1 cols"
	ColM1NNZ          = "matrix 1 nnz"
	ColM1Density      = "matrix 1 nnz density"
	ColM2Rows         = "matrix 2 rows"
	ColM2Cols         = "matrix 2 cols"
	ColM2NNZ          = "matrix 2 nnz"
	ColM2Density      = "matrix 2 nnz density"
	ColProductRows    = "product rows"
	ColProductCols    = "product cols"
	ColProductNNZ     = "product nnz"
	ColProductDensity = "product nnz density"
	ColM1Path         = "matrix 1 path"
	ColM2Path         = "matrix 2 path"
	ColProductPath    = "product path"
)

// Columns is the header row written by Store.Write.
var Columns = []string{
	ColTimestamp,
	ColM1Rows, ColM1Cols, ColM1NNZ, ColM1Density,
	ColM2Rows, ColM2Cols, ColM2NNZ, ColM2Density,
	ColProductRows, ColProductCols, ColProductNNZ, ColProductDensity,
	ColM1Path, ColM2Path, ColProductPath,
}
