// Package benchmarks provides benchmarks for comparing GC performance.
//
// To run with default GC:
//
//	go test -bench=. -benchmem ./benchmarks/...
//
// To run with greenteagc (Go 1.25+):
//
//	GOEXPERIMENT=greenteagc go test -bench=. -benchmem ./benchmarks/...
//
// To compare results:
//
//	go install golang.org/x/perf/cmd/benchstat@latest
//	go test -bench=. -benchmem -count=5 ./benchmarks/... > default.txt
//	GOEXPERIMENT=greenteagc go test -bench=. -benchmem -count=5 ./benchmarks/... > greenteagc.txt
//	benchstat default.txt greenteagc.txt
package benchmarks

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/mlowell/blunderlab/internal/analysis"
	"github.com/mlowell/blunderlab/internal/retrieve"
)

func makeMoveError(ply int) analysis.MoveError {
	return analysis.MoveError{
		Ply:            ply,
		MoveNo:         (ply + 1) / 2,
		Side:           "white",
		PlayedSAN:      "Qxf7",
		PlayedUCI:      "h5f7",
		BestSAN:        "Nf3",
		BestUCI:        "g1f3",
		CPLoss:         320,
		Severity:       analysis.SeverityBlunder,
		PositionBefore: "r1bqkbnr/pppp1ppp/2n5/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
		GameLink:       fmt.Sprintf("https://lichess.org/abcd1234#%d", ply),
	}
}

func makeReport(id, errCount int) analysis.GameReport {
	errs := make([]analysis.MoveError, errCount)
	for i := range errs {
		errs[i] = makeMoveError(i*2 + 1)
	}
	return analysis.GameReport{
		GameID: fmt.Sprintf("game%06d", id),
		Meta: analysis.GameMeta{
			White:       "some_player_name",
			Black:       "another_player_name",
			WhiteElo:    "1734",
			BlackElo:    "1698",
			Date:        "2026.08.21",
			TimeControl: "300+3",
			Opening:     "Sicilian Defense: Najdorf Variation",
			Result:      "0-1",
		},
		Errors: errs,
	}
}

// makePGNBlob builds a raw multi-game export of the given size, the
// shape the Lichess PGN endpoint streams back.
func makePGNBlob(games int) string {
	var sb strings.Builder
	for i := 0; i < games; i++ {
		fmt.Fprintf(&sb, `[Event "Rated blitz game"]
[Site "https://lichess.org/game%04d"]
[White "some_player_name"]
[Black "another_player_name"]
[Result "1-0"]
[UTCDate "2026.08.21"]
[TimeControl "300+3"]
[Opening "Sicilian Defense"]

1. e4 c5 2. Nf3 d6 3. d4 cxd4 4. Nxd4 Nf6 5. Nc3 a6 6. Be2 e5 7. Nb3 Be7 1-0

`, i)
	}
	return sb.String()
}

func sizeName(n int) string {
	return fmt.Sprintf("Size%d", n)
}

func gameName(n int) string {
	return fmt.Sprintf("Games%d", n)
}

// BenchmarkReportAllocation simulates building a large run in memory.
// Each report carries its graded moves, many small objects that stress
// the GC.
func BenchmarkReportAllocation(b *testing.B) {
	sizes := []int{100, 500, 1000}

	for _, size := range sizes {
		b.Run(sizeName(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				reports := make([]analysis.GameReport, size)
				for j := range reports {
					reports[j] = makeReport(j, 5)
				}
				runtime.KeepAlive(reports)
			}
		})
	}
}

// BenchmarkSeverityClassification exercises the per-ply hot path of
// the grader.
func BenchmarkSeverityClassification(b *testing.B) {
	thresholds := analysis.Thresholds{Inaccuracy: 50, Mistake: 150, Blunder: 300}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sev := thresholds.Classify(i % 512)
		runtime.KeepAlive(sev)
	}
}

// BenchmarkSplitGames measures carving a raw export blob into
// single-game texts.
func BenchmarkSplitGames(b *testing.B) {
	counts := []int{10, 50, 200}

	for _, count := range counts {
		blob := makePGNBlob(count)
		b.Run(gameName(count), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				games := retrieve.SplitGames(blob)
				if len(games) != count {
					b.Fatalf("expected %d games, got %d", count, len(games))
				}
				runtime.KeepAlive(games)
			}
		})
	}
}

// BenchmarkJSONMarshal benchmarks JSON encoding which creates many temporaries.
func BenchmarkJSONMarshal(b *testing.B) {
	moveErr := makeMoveError(9)
	report := makeReport(1, 5)

	reports := make([]analysis.GameReport, 50)
	for j := range reports {
		reports[j] = makeReport(j, 5)
	}

	b.Run("MoveError", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, _ := json.Marshal(moveErr)
			runtime.KeepAlive(data)
		}
	})

	b.Run("GameReport", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, _ := json.Marshal(report)
			runtime.KeepAlive(data)
		}
	})

	b.Run("ReportSlice50", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, _ := json.Marshal(reports)
			runtime.KeepAlive(data)
		}
	})
}

// BenchmarkJSONUnmarshal benchmarks JSON decoding which creates the target objects.
func BenchmarkJSONUnmarshal(b *testing.B) {
	moveErrJSON, _ := json.Marshal(makeMoveError(9))
	reportJSON, _ := json.Marshal(makeReport(1, 5))

	reports := make([]analysis.GameReport, 50)
	for j := range reports {
		reports[j] = makeReport(j, 5)
	}
	reportsJSON, _ := json.Marshal(reports)

	b.Run("MoveError", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			var moveErr analysis.MoveError
			_ = json.Unmarshal(moveErrJSON, &moveErr)
		}
	})

	b.Run("GameReport", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			var report analysis.GameReport
			_ = json.Unmarshal(reportJSON, &report)
		}
	})

	b.Run("ReportSlice50", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			var out []analysis.GameReport
			_ = json.Unmarshal(reportsJSON, &out)
		}
	})
}
