// Package gallery renders analysis reports as a static, self-contained
// HTML page: one interactive board card per flagged move, plus chart
// pages summarizing the run. The boards come from CDN web components,
// so the output directory needs no local assets and can be opened from
// disk or served over HTTP.
package gallery

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlowell/blunderlab/internal/analysis"
)

// IndexFileName is the entry page written by RenderIndex.
const IndexFileName = "index.html"

// Gallery writes HTML output for a set of game reports.
type Gallery struct {
	outDir string
}

// New returns a Gallery writing into outDir. The directory is created
// on first render.
func New(outDir string) *Gallery {
	return &Gallery{outDir: outDir}
}

// OutDir reports the directory renders are written into.
func (g *Gallery) OutDir() string {
	return g.outDir
}

// card is one flagged move flattened for the index template.
type card struct {
	Index       int
	GameID      string
	White       string
	Black       string
	WhiteElo    string
	BlackElo    string
	Date        string
	Opening     string
	TimeControl string
	MoveNo      int
	SAN         string
	Class       string
	Badge       string
	CPLoss      int
	FEN         string
	BestUCI     string
	TurnCode    string
	Orientation string
	Link        string
}

// indexData feeds the index template.
type indexData struct {
	TotalGames  int
	TotalErrors int
	Cards       []card
}

// RenderAll writes the index page and both chart pages, returning the
// path of the index.
func (g *Gallery) RenderAll(reports []analysis.GameReport) (string, error) {
	path, err := g.RenderIndex(reports)
	if err != nil {
		return "", err
	}
	if _, err := g.RenderSeverityChart(reports); err != nil {
		return "", err
	}
	if _, err := g.RenderLossChart(reports); err != nil {
		return "", err
	}
	return path, nil
}

// RenderIndex writes index.html for the given reports and returns the
// path of the written file. Games that failed to parse count toward
// the game total but contribute no cards.
func (g *Gallery) RenderIndex(reports []analysis.GameReport) (string, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	data := indexData{TotalGames: len(reports)}
	for _, rep := range reports {
		for _, rec := range rep.Errors {
			data.TotalErrors++
			data.Cards = append(data.Cards, newCard(len(data.Cards)+1, rep, rec))
		}
	}

	path := filepath.Join(g.outDir, IndexFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create gallery file: %w", err)
	}
	defer f.Close()

	if err := indexTmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("render gallery: %w", err)
	}

	return path, nil
}

// newCard prepares one flagged move for the template. The board is
// oriented toward the side that has the move to find.
func newCard(index int, rep analysis.GameReport, rec analysis.MoveError) card {
	c := card{
		Index:       index,
		GameID:      rep.GameID,
		White:       rep.Meta.White,
		Black:       rep.Meta.Black,
		WhiteElo:    rep.Meta.WhiteElo,
		BlackElo:    rep.Meta.BlackElo,
		Date:        rep.Meta.Date,
		Opening:     rep.Meta.Opening,
		TimeControl: rep.Meta.TimeControl,
		MoveNo:      rec.MoveNo,
		SAN:         rec.PlayedSAN,
		Class:       rec.Severity.String(),
		Badge:       strings.ToUpper(rec.Severity.String()),
		CPLoss:      rec.CPLoss,
		FEN:         rec.PositionBefore,
		BestUCI:     strings.ToLower(rec.BestUCI),
		TurnCode:    "w",
		Orientation: "white",
		Link:        rec.GameLink,
	}
	if rec.Side == "black" {
		c.TurnCode = "b"
		c.Orientation = "black"
	}
	return c
}

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

// indexHTML is the whole page: inline CSS, the card grid, and the
// trainer script. chess.js supplies the rules, the board element only
// renders and reports drags.
const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width,initial-scale=1"/>
  <title>Lichess Error Gallery + Trainer</title>
  <style>
    :root {
      --bg: #0b0c10; --card:#15181d; --stroke:#262a31; --text:#e6e6e6; --muted:#9aa4b2;
      --chip:#2a2f37; --inacc:#d7b300; --mist:#ff7a00; --blun:#ff3b30; --accent:#4ea1ff;
    }
    * { box-sizing:border-box }
    body { margin:0; background:var(--bg); color:var(--text); font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif }
    a { color:var(--accent) }
    header { padding:16px 20px; border-bottom:1px solid var(--stroke); position:sticky; top:0; background:rgba(11,12,16,.86); backdrop-filter:blur(6px); z-index:10 }
    h1 { margin:0 0 6px 0; font-size:20px }
    .stats { color:var(--muted); font-size:13px }
    main.grid { display:grid; gap:16px; padding:16px; grid-template-columns:repeat(auto-fill,minmax(360px,1fr)) }
    .card { border:1px solid var(--stroke); background:var(--card); border-radius:12px; padding:12px }
    .head { display:flex; gap:10px; align-items:center; margin-bottom:6px; font-weight:600 }
    .tag { font-size:12px; text-transform:uppercase; letter-spacing:.6px; padding:2px 8px; border-radius:999px }
    .tag.inaccuracy { background:var(--inacc); color:#000 }
    .tag.mistake { background:var(--mist); color:#000 }
    .tag.blunder { background:var(--blun); color:#fff }
    .meta, .cp, .link, .help { color:var(--muted); font-size:13px; margin-top:6px }
    .board-wrap { margin-top:10px }
    chess-board.board { width: 360px; max-width: 100%; display:block; border-radius:8px; overflow:hidden; border:1px solid var(--stroke) }
    .ok { margin-top:10px; background:#1f6f3e; color:#fff; border:none; padding:8px 12px; border-radius:8px; cursor:pointer }
    .ok:hover { filter:brightness(1.05) }
    footer { text-align:center; color:var(--muted); font-size:12px; padding:16px }
  </style>

  <script type="module" src="https://unpkg.com/chessboard-element?module"></script>
  <script src="https://cdnjs.cloudflare.com/ajax/libs/chess.js/0.13.4/chess.min.js"></script>
</head>
<body>
  <header>
    <h1>Blunders under the microscope</h1>
    <div class="stats">Games scanned: <b>{{.TotalGames}}</b> • Positions found: <b>{{.TotalErrors}}</b> • <a href="severity.html">Severity chart</a> • <a href="losses.html">Loss chart</a></div>
    <div class="stats">Play the best move on each board. A correct move sticks, anything else snaps back.</div>
  </header>

  <main class="grid" id="grid">
{{range .Cards}}
<div class="card tactic"
     data-id="{{.Index}}"
     data-fen="{{.FEN}}"
     data-best="{{.BestUCI}}"
     data-turn="{{.TurnCode}}">
  <div class="head">
    <span class="tag {{.Class}}">{{.Badge}}</span>
    <span class="title">#{{.MoveNo}} • {{.SAN}}</span>
  </div>
  <div class="meta">
    {{.White}} ({{.WhiteElo}}) — {{.Black}} ({{.BlackElo}})<br/>
    {{.Date}} • {{.Opening}} • {{.TimeControl}}
  </div>
  <div class="cp">Δ {{.CPLoss}} cp</div>
  <div class="link"><a href="{{.Link}}" target="_blank" rel="noopener">{{.GameID}}</a></div>

  <div class="board-wrap">
    <chess-board id="board-{{.Index}}" class="board"
                 position="{{.FEN}}"
                 orientation="{{.Orientation}}"
                 draggable-pieces
                 animation-duration="200">
    </chess-board>
    <div class="help">Drag a piece to play the best move. Only the side to move can be dragged.</div>
    <button id="ok-{{.Index}}" class="ok" style="display:none">✅ Solved!</button>
  </div>
</div>
{{end}}
  </main>

  <footer>Generated from engine analysis. Every board is playable right here, no external site required.</footer>

  <script>
  (() => {
    const tactics = Array.from(document.querySelectorAll('.card.tactic'));
    for (const t of tactics) {
      const id   = t.dataset.id;
      const fen  = t.dataset.fen;
      const best = (t.dataset.best || '').trim().toLowerCase();

      const board = document.getElementById('board-' + id);
      const okBtn = document.getElementById('ok-' + id);

      const game = new window.Chess();
      try {
        game.load(fen);
      } catch (e) {
        console.error('Bad FEN', fen, e);
        continue;
      }

      let solved = false;

      board.addEventListener('drag-start', (e) => {
        if (solved) { e.preventDefault(); return; }
        const piece = e.detail.piece;
        if (game.game_over()) { e.preventDefault(); return; }
        if ((game.turn() === 'w' && piece.startsWith('b')) ||
            (game.turn() === 'b' && piece.startsWith('w'))) {
          e.preventDefault();
        }
      });

      board.addEventListener('drop', (e) => {
        if (solved) { e.detail.setAction('snapback'); return; }
        const source = e.detail.source;
        const target = e.detail.target;

        // Promotion defaults to queen, matching how moves were graded.
        const move = game.move({ from: source, to: target, promotion: 'q' });
        if (move === null) {
          e.detail.setAction('snapback');
          return;
        }

        const playedUci = (source + target + (move.promotion || '')).toLowerCase();
        if (playedUci !== best) {
          game.undo();
          e.detail.setAction('snapback');
          return;
        }

        solved = true;
        okBtn.style.display = 'inline-block';
      });

      // Resync after animations so captures and castling render fully.
      board.addEventListener('snap-end', () => {
        board.setPosition(game.fen());
      });
    }
  })();
  </script>
</body>
</html>
`
