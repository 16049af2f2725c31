package engine

import (
	"errors"
	"runtime"
	"testing"
)

func TestScoreCentipawns(t *testing.T) {
	tests := []struct {
		name  string
		score Score
		want  int
	}{
		{"positive cp", Score{Value: 34}, 34},
		{"negative cp", Score{Value: -250}, -250},
		{"zero", Score{}, 0},
		{"mate for side to move", Score{Mate: true, Value: 3}, MateSentinel},
		{"long mate for side to move", Score{Mate: true, Value: 27}, MateSentinel},
		{"mate against side to move", Score{Mate: true, Value: -2}, -MateSentinel},
		{"already mated", Score{Mate: true, Value: 0}, -MateSentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.score.Centipawns(); got != tt.want {
				t.Errorf("Centipawns() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSentinelSubtractionDoesNotOverflow(t *testing.T) {
	best := Score{Mate: true, Value: 5}.Centipawns()
	played := Score{Mate: true, Value: -5}.Centipawns()

	if loss := best - played; loss != 2*MateSentinel {
		t.Errorf("loss across opposite sentinels = %d, want %d", loss, 2*MateSentinel)
	}
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantScore Score
		wantDepth int
		wantOK    bool
	}{
		{
			name:      "cp score",
			line:      "info depth 12 seldepth 16 multipv 1 score cp 34 nodes 52000 nps 640000 pv e2e4 e7e5",
			wantScore: Score{Value: 34},
			wantDepth: 12,
			wantOK:    true,
		},
		{
			name:      "negative cp",
			line:      "info depth 8 score cp -310 pv g2g4",
			wantScore: Score{Value: -310},
			wantDepth: 8,
			wantOK:    true,
		},
		{
			name:      "mate for side to move",
			line:      "info depth 20 score mate 3 pv d8h4",
			wantScore: Score{Mate: true, Value: 3},
			wantDepth: 20,
			wantOK:    true,
		},
		{
			name:      "mate against side to move",
			line:      "info depth 14 score mate -2 pv f2f3",
			wantScore: Score{Mate: true, Value: -2},
			wantDepth: 14,
			wantOK:    true,
		},
		{
			name:   "lowerbound skipped",
			line:   "info depth 13 score cp 90 lowerbound nodes 100 pv e2e4",
			wantOK: false,
		},
		{
			name:   "upperbound skipped",
			line:   "info depth 13 score cp 90 upperbound nodes 100 pv e2e4",
			wantOK: false,
		},
		{
			name:   "no score",
			line:   "info string NNUE evaluation using nn-ad9b42354671.nnue",
			wantOK: false,
		},
		{
			name:   "currmove report",
			line:   "info depth 15 currmove e2e4 currmovenumber 1",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, depth, ok := parseInfo(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseInfo() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if score != tt.wantScore {
				t.Errorf("parseInfo() score = %+v, want %+v", score, tt.wantScore)
			}
			if depth != tt.wantDepth {
				t.Errorf("parseInfo() depth = %d, want %d", depth, tt.wantDepth)
			}
		})
	}
}

const testFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	return New("testdata/fakefish", DefaultOptions())
}

func TestEngineBestMove(t *testing.T) {
	eng := newTestEngine(t)
	defer eng.Close()

	eval, err := eng.BestMove(testFEN)
	if err != nil {
		t.Fatalf("BestMove() error = %v", err)
	}

	if eval.BestMove != "e2e4" {
		t.Errorf("BestMove = %q, want e2e4", eval.BestMove)
	}
	if got := eval.Score.Centipawns(); got != 120 {
		t.Errorf("Score.Centipawns() = %d, want 120 (lowerbound line must not win)", got)
	}
	if eval.Depth != 12 {
		t.Errorf("Depth = %d, want 12", eval.Depth)
	}
}

func TestEngineEvalMove(t *testing.T) {
	eng := newTestEngine(t)
	defer eng.Close()

	eval, err := eng.EvalMove(testFEN, "e7e5")
	if err != nil {
		t.Fatalf("EvalMove() error = %v", err)
	}

	if eval.BestMove != "e7e5" {
		t.Errorf("BestMove = %q, want the constrained move e7e5", eval.BestMove)
	}
	if got := eval.Score.Centipawns(); got != -40 {
		t.Errorf("Score.Centipawns() = %d, want -40", got)
	}
}

func TestEngineReusesOneProcess(t *testing.T) {
	eng := newTestEngine(t)
	defer eng.Close()

	if _, err := eng.BestMove(testFEN); err != nil {
		t.Fatalf("first query error = %v", err)
	}
	pid := eng.cmd.Process.Pid

	if _, err := eng.EvalMove(testFEN, "e7e5"); err != nil {
		t.Fatalf("second query error = %v", err)
	}
	if eng.cmd.Process.Pid != pid {
		t.Error("engine restarted between queries, want one process per run")
	}
}

func TestEngineClose(t *testing.T) {
	eng := newTestEngine(t)

	if _, err := eng.BestMove(testFEN); err != nil {
		t.Fatalf("BestMove() error = %v", err)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if _, err := eng.BestMove(testFEN); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("BestMove() after Close error = %v, want ErrEngineClosed", err)
	}
}

func TestEngineCloseWithoutStart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	eng := New("testdata/fakefish", DefaultOptions())
	if err := eng.Close(); err != nil {
		t.Errorf("Close() on unstarted engine error = %v, want nil", err)
	}
}

func TestEngineMissingExecutable(t *testing.T) {
	eng := New("testdata/no-such-engine", DefaultOptions())
	defer eng.Close()

	if _, err := eng.BestMove(testFEN); err == nil {
		t.Error("BestMove() with missing executable: want error, got nil")
	}
}
