package dataset

import (
	"strings"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/pkg/common"
)

const (
	piecePlanes    = "KQRBNPkqrbnp"
	castlingPlanes = 12
	fiftyPlane     = 16
	epPlane        = 17
)

// CanonicalPlanes encodes a position as 18 planes of 8x8 from the side to move.
// Black to move positions are mirrored first so the side to move always plays up the board.
// Plane rows follow FEN order: row 0 is the 8th rank.
func CanonicalPlanes(b *common.Board) []float32 {
	if !b.WhiteMove {
		var m = common.MirrorBoard(b)
		b = &m
	}
	var planes = make([]float32, domain.StateSize)
	for sq, piece := range b.Squares {
		if piece.Type == common.Empty {
			continue
		}
		var plane = strings.IndexByte(piecePlanes, pieceChar(piece))
		planes[planeIndex(plane, sq)] = 1
	}
	for i, right := range []int{common.WhiteKingSide, common.WhiteQueenSide, common.BlackKingSide, common.BlackQueenSide} {
		if b.CastleRights&right != 0 {
			fillPlane(planes, castlingPlanes+i, 1)
		}
	}
	fillPlane(planes, fiftyPlane, float32(b.Rule50))
	if b.EpSquare != common.SquareNone {
		planes[planeIndex(epPlane, b.EpSquare)] = 1
	}
	return planes
}

func planeIndex(plane, sq int) int {
	var row = common.Rank8 - common.Rank(sq)
	return plane*64 + row*8 + common.File(sq)
}

func fillPlane(planes []float32, plane int, value float32) {
	var p = planes[plane*64 : (plane+1)*64]
	for i := range p {
		p[i] = value
	}
}

func pieceChar(p common.Piece) byte {
	var ch = "?PNBRQK"[p.Type]
	if !p.White {
		ch += 'a' - 'A'
	}
	return ch
}
