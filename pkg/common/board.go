package common

import (
	"bytes"
	"fmt"
	"strconv"
	s "strings"
	"unicode"
)

const (
	WhiteKingSide = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide
)

const (
	Empty int = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const InitialPositionFen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Piece struct {
	Type  int
	White bool
}

// Board is a FEN position without move generation state.
// Squares are indexed a1=0 .. h8=63.
type Board struct {
	Squares      [64]Piece
	WhiteMove    bool
	CastleRights int
	EpSquare     int
	Rule50       int
	MoveNumber   int
}

func NewBoardFromFEN(fen string) (Board, error) {
	var tokens = s.Fields(fen)
	if len(tokens) < 4 {
		return Board{}, fmt.Errorf("parse fen failed %v", fen)
	}

	var b = Board{
		EpSquare:   SquareNone,
		MoveNumber: 1,
	}

	var ranks = s.Split(tokens[0], "/")
	if len(ranks) != 8 {
		return Board{}, fmt.Errorf("parse fen failed %v", fen)
	}
	var i = 0
	for _, rank := range ranks {
		var start = i
		for _, ch := range rank {
			if unicode.IsDigit(ch) {
				i += int(ch - '0')
			} else if piece, ok := parsePiece(ch); ok {
				if i-start >= 8 {
					return Board{}, fmt.Errorf("parse fen failed %v", fen)
				}
				b.Squares[FlipSquare(i)] = piece
				i++
			} else {
				return Board{}, fmt.Errorf("parse fen failed %v", fen)
			}
		}
		if i-start != 8 {
			return Board{}, fmt.Errorf("parse fen failed %v", fen)
		}
	}

	switch tokens[1] {
	case "w":
		b.WhiteMove = true
	case "b":
		b.WhiteMove = false
	default:
		return Board{}, fmt.Errorf("parse fen failed %v", fen)
	}

	var sCastleRights = tokens[2]
	if s.Contains(sCastleRights, "K") {
		b.CastleRights |= WhiteKingSide
	}
	if s.Contains(sCastleRights, "Q") {
		b.CastleRights |= WhiteQueenSide
	}
	if s.Contains(sCastleRights, "k") {
		b.CastleRights |= BlackKingSide
	}
	if s.Contains(sCastleRights, "q") {
		b.CastleRights |= BlackQueenSide
	}

	var err error
	b.EpSquare, err = ParseSquare(tokens[3])
	if err != nil {
		return Board{}, fmt.Errorf("parse fen failed %v: %w", fen, err)
	}

	if len(tokens) > 4 {
		b.Rule50, err = strconv.Atoi(tokens[4])
		if err != nil || b.Rule50 < 0 {
			return Board{}, fmt.Errorf("parse fen failed %v", fen)
		}
	}
	if len(tokens) > 5 {
		b.MoveNumber, err = strconv.Atoi(tokens[5])
		if err != nil || b.MoveNumber < 0 {
			return Board{}, fmt.Errorf("parse fen failed %v", fen)
		}
	}
	return b, nil
}

func (b *Board) String() string {
	var sb bytes.Buffer

	var emptyCount = 0
	for i := 0; i < 64; i++ {
		var sq = FlipSquare(i)
		var piece = b.Squares[sq]
		if piece.Type == Empty {
			emptyCount++
		} else {
			if emptyCount != 0 {
				sb.WriteString(strconv.Itoa(emptyCount))
				emptyCount = 0
			}
			sb.WriteByte(pieceToChar(piece))
		}

		if File(sq) == FileH {
			if emptyCount != 0 {
				sb.WriteString(strconv.Itoa(emptyCount))
				emptyCount = 0
			}
			if Rank(sq) != Rank1 {
				sb.WriteString("/")
			}
		}
	}
	sb.WriteString(" ")

	if b.WhiteMove {
		sb.WriteString("w")
	} else {
		sb.WriteString("b")
	}
	sb.WriteString(" ")

	if b.CastleRights == 0 {
		sb.WriteString("-")
	} else {
		if (b.CastleRights & WhiteKingSide) != 0 {
			sb.WriteString("K")
		}
		if (b.CastleRights & WhiteQueenSide) != 0 {
			sb.WriteString("Q")
		}
		if (b.CastleRights & BlackKingSide) != 0 {
			sb.WriteString("k")
		}
		if (b.CastleRights & BlackQueenSide) != 0 {
			sb.WriteString("q")
		}
	}
	sb.WriteString(" ")

	if b.EpSquare == SquareNone {
		sb.WriteString("-")
	} else {
		sb.WriteString(SquareName(b.EpSquare))
	}
	sb.WriteString(" ")

	sb.WriteString(strconv.Itoa(b.Rule50))
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(b.MoveNumber))

	return sb.String()
}

// MirrorBoard flips ranks, swaps colors and passes the move to the other side.
// Counters are kept as is.
func MirrorBoard(b *Board) Board {
	var result = Board{
		WhiteMove:    !b.WhiteMove,
		CastleRights: (b.CastleRights >> 2) | ((b.CastleRights & 3) << 2),
		EpSquare:     SquareNone,
		Rule50:       b.Rule50,
		MoveNumber:   b.MoveNumber,
	}
	for sq, piece := range b.Squares {
		if piece.Type != Empty {
			result.Squares[FlipSquare(sq)] = Piece{Type: piece.Type, White: !piece.White}
		}
	}
	if b.EpSquare != SquareNone {
		result.EpSquare = FlipSquare(b.EpSquare)
	}
	return result
}

func IsBlackTurn(fen string) bool {
	var tokens = s.Fields(fen)
	return len(tokens) > 1 && tokens[1] == "b"
}
