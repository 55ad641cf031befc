package game

// ScoreState 分数与生命
type ScoreState struct {
	Score     int `json:"score" msgpack:"score"`
	Collected int `json:"collected" msgpack:"collected"`
	Lives     int `json:"lives" msgpack:"lives"`
	Hits      int `json:"hits" msgpack:"hits"`
}

// Scoreboard 默认的计分/生命协作者；生命耗尽时调用 onDepleted
type Scoreboard struct {
	state      ScoreState
	onDepleted func()
}

func NewScoreboard(lives int, onDepleted func()) *Scoreboard {
	if onDepleted == nil {
		onDepleted = func() {}
	}
	return &Scoreboard{state: ScoreState{Lives: lives}, onDepleted: onDepleted}
}

func (s *Scoreboard) OnCollectibleConsumed(points int) {
	s.state.Score += points
	s.state.Collected++
}

func (s *Scoreboard) OnHazardContact() {
	s.state.Hits++
	if s.state.Lives <= 0 {
		return
	}
	s.state.Lives--
	if s.state.Lives == 0 {
		s.onDepleted()
	}
}

func (s *Scoreboard) State() ScoreState { return s.state }
