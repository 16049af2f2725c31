package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mlowell/blunderlab/internal/analysis"
	"github.com/mlowell/blunderlab/internal/gallery"
)

func main() {
	reports := []analysis.GameReport{{
		GameID: "abcd1234",
		Meta: analysis.GameMeta{
			White: "alice", Black: "bob", WhiteElo: "1500", BlackElo: "1480",
			Date: "2024.03.01", TimeControl: "300+0", Opening: "Italian Game", Result: "1-0",
		},
		Errors: []analysis.MoveError{{
			Ply: 9, MoveNo: 5, Side: "white",
			PlayedSAN: "Ng5", PlayedUCI: "f3g5", BestSAN: "O-O", BestUCI: "E1G1",
			CPLoss: 320, Severity: analysis.SeverityBlunder,
			PositionBefore: "fen-here", GameLink: "https://lichess.org/abcd1234#9",
		}},
	}}
	dir, _ := os.MkdirTemp("", "gal")
	path, err := gallery.New(filepath.Join(dir, "out")).RenderIndex(reports)
	if err != nil {
		fmt.Println("ERR:", err)
		return
	}
	data, _ := os.ReadFile(path)
	s := string(data)
	i := 0
	for n := 0; n < len(s); n++ {
		if s[n] == 'm' && n+10 < len(s) && s[n:n+10] == `meta">`+"\n   " {
			i = n
			break
		}
	}
	start := i - 20
	if start < 0 {
		start = 0
	}
	end := i + 220
	if end > len(s) {
		end = len(s)
	}
	fmt.Printf("%q\n", s[start:end])
}
