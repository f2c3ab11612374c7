package common

import (
	"strings"
	"unicode"
)

func Min(l, r int) int {
	if l < r {
		return l
	}
	return r
}

func Max(l, r int) int {
	if l > r {
		return l
	}
	return r
}

func parsePiece(ch rune) (Piece, bool) {
	var side = unicode.IsUpper(ch)
	var spiece = string(unicode.ToLower(ch))
	var i = strings.Index("pnbrqk", spiece)
	if i < 0 {
		return Piece{}, false
	}
	return Piece{Type: i + Pawn, White: side}, true
}

func pieceToChar(p Piece) byte {
	var result = "pnbrqk"[p.Type-Pawn]
	if p.White {
		result = byte(unicode.ToUpper(rune(result)))
	}
	return result
}
