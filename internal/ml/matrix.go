package ml

// Matrix is stored column-major: column c occupies Data[c*Rows : (c+1)*Rows].
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

func NewMatrix(rows, cols int) Matrix {
	return Matrix{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

func (m *Matrix) Get(row, col int) float64 {
	return m.Data[col*m.Rows+row]
}

func (m *Matrix) Column(col int) []float64 {
	return m.Data[col*m.Rows : (col+1)*m.Rows]
}
