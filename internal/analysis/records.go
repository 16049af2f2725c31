package analysis

// GameMeta carries the header facts displayed with a game.
type GameMeta struct {
	White       string `json:"white"`
	Black       string `json:"black"`
	WhiteElo    string `json:"white_elo,omitempty"`
	BlackElo    string `json:"black_elo,omitempty"`
	Date        string `json:"date,omitempty"`
	TimeControl string `json:"time_control,omitempty"`
	Opening     string `json:"opening,omitempty"`
	Result      string `json:"result,omitempty"`
}

// MoveError is one move graded against the engine's preference. It is
// self-contained: the pre-move position and the engine's choice travel
// with the record, so a trainer can replay it without the game text.
type MoveError struct {
	Ply            int      `json:"ply"`
	MoveNo         int      `json:"move_no"`
	Side           string   `json:"side"`
	PlayedSAN      string   `json:"played_san"`
	PlayedUCI      string   `json:"played_uci"`
	BestSAN        string   `json:"best_san"`
	BestUCI        string   `json:"best_uci"`
	CPLoss         int      `json:"cp_loss"`
	Severity       Severity `json:"severity"`
	PositionBefore string   `json:"position_before"`
	GameLink       string   `json:"game_link,omitempty"`
}

// GameReport is the outcome of analyzing one game. A game whose
// movetext could not be parsed still produces a report with its
// header metadata and ParseFailed set.
type GameReport struct {
	GameID      string      `json:"game_id,omitempty"`
	Meta        GameMeta    `json:"meta"`
	Errors      []MoveError `json:"errors"`
	ParseFailed bool        `json:"parse_failed,omitempty"`
}
