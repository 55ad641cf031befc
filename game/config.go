package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Spot 配置中的坐标，文本格式 "x:z"
type Spot Coord

func (s *Spot) UnmarshalText(text []byte) error {
	x, z, ok := strings.Cut(strings.TrimSpace(string(text)), ":")
	if !ok {
		return fmt.Errorf("spot %q: want x:z", text)
	}
	xi, err := strconv.Atoi(strings.TrimSpace(x))
	if err != nil {
		return fmt.Errorf("spot %q: %w", text, err)
	}
	zi, err := strconv.Atoi(strings.TrimSpace(z))
	if err != nil {
		return fmt.Errorf("spot %q: %w", text, err)
	}
	*s = Spot{X: xi, Z: zi}
	return nil
}

func (s Spot) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%d", s.X, s.Z)), nil
}

// Config 会话配置（环境变量前缀见 server.Config）
type Config struct {
	Width    int     `env:"WIDTH" envDefault:"15" json:"width"`
	Height   int     `env:"HEIGHT" envDefault:"15" json:"height"`
	TileSize float64 `env:"TILE_SIZE" envDefault:"1" json:"tileSize"`
	Layout   string  `env:"LAYOUT" envDefault:"level1" json:"layout"`

	Phase1Goal         int    `env:"PHASE1_GOAL" envDefault:"0" json:"phase1Goal"`
	Phase2Goal         int    `env:"PHASE2_GOAL" envDefault:"5" json:"phase2Goal"`
	Phase2Spots        []Spot `env:"PHASE2_SPOTS" envSeparator:";" json:"phase2Spots,omitempty"`
	SpawnAttemptFactor int    `env:"SPAWN_ATTEMPT_FACTOR" envDefault:"30" json:"spawnAttemptFactor"`

	MaxLineLength int           `env:"MAX_LINE_LENGTH" envDefault:"5" json:"maxLineLength"`
	LineStepDelay time.Duration `env:"LINE_STEP_DELAY" envDefault:"100ms" json:"lineStepDelay"`
	MoveSpeed     float64       `env:"MOVE_SPEED" envDefault:"8" json:"moveSpeed"`
	PlayerSpawn   Spot          `env:"PLAYER_SPAWN" envDefault:"1:1" json:"playerSpawn"`

	ObstacleDestroyDuration    time.Duration `env:"OBSTACLE_DESTROY_DURATION" envDefault:"250ms" json:"obstacleDestroyDuration"`
	CollectibleDestroyDuration time.Duration `env:"COLLECTIBLE_DESTROY_DURATION" envDefault:"300ms" json:"collectibleDestroyDuration"`
	AnimationStepInterval      time.Duration `env:"ANIMATION_STEP_INTERVAL" envDefault:"50ms" json:"animationStepInterval"`

	FruitPoints int           `env:"FRUIT_POINTS" envDefault:"10" json:"fruitPoints"`
	Lives       int           `env:"LIVES" envDefault:"3" json:"lives"`
	TimeLimit   time.Duration `env:"TIME_LIMIT" envDefault:"0s" json:"timeLimit"`

	EnemyEnabled    bool          `env:"ENEMY_ENABLED" envDefault:"true" json:"enemyEnabled"`
	EnemySpawn      Spot          `env:"ENEMY_SPAWN" envDefault:"13:13" json:"enemySpawn"`
	EnemySpeed      float64       `env:"ENEMY_SPEED" envDefault:"3.5" json:"enemySpeed"`
	EnemyThinkDelay time.Duration `env:"ENEMY_THINK_DELAY" envDefault:"500ms" json:"enemyThinkDelay"`

	// 0 表示使用当前时间作为随机种子
	Seed int64 `env:"SEED" envDefault:"0" json:"seed"`
}

// DefaultConfig 与 envDefault 保持一致
func DefaultConfig() Config {
	return Config{
		Width:                      15,
		Height:                     15,
		TileSize:                   1,
		Layout:                     "level1",
		Phase2Goal:                 5,
		SpawnAttemptFactor:         30,
		MaxLineLength:              5,
		LineStepDelay:              100 * time.Millisecond,
		MoveSpeed:                  8,
		PlayerSpawn:                Spot{X: 1, Z: 1},
		ObstacleDestroyDuration:    250 * time.Millisecond,
		CollectibleDestroyDuration: 300 * time.Millisecond,
		AnimationStepInterval:      50 * time.Millisecond,
		FruitPoints:                10,
		Lives:                      3,
		EnemyEnabled:               true,
		EnemySpawn:                 Spot{X: 13, Z: 13},
		EnemySpeed:                 3.5,
		EnemyThinkDelay:            500 * time.Millisecond,
	}
}

// Validate 检查会话级常量
func (c Config) Validate() error {
	if c.Width < 3 || c.Height < 3 {
		return fmt.Errorf("board %dx%d too small: need at least 3x3", c.Width, c.Height)
	}
	if c.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %v", c.TileSize)
	}
	if c.MaxLineLength < 1 {
		return fmt.Errorf("max line length must be at least 1, got %d", c.MaxLineLength)
	}
	if c.MoveSpeed <= 0 {
		return fmt.Errorf("move speed must be positive, got %v", c.MoveSpeed)
	}
	if c.LineStepDelay < 0 || c.AnimationStepInterval < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time limit must not be negative, got %v", c.TimeLimit)
	}
	if c.EnemyEnabled {
		// 思考间隔为 0 时敌人会在同一虚拟时刻无限重排
		if c.EnemyThinkDelay <= 0 {
			return fmt.Errorf("enemy think delay must be positive, got %v", c.EnemyThinkDelay)
		}
		if c.EnemySpeed <= 0 {
			return fmt.Errorf("enemy speed must be positive, got %v", c.EnemySpeed)
		}
	}
	if _, err := LookupLayout(c.Layout, c.Width, c.Height); err != nil {
		return err
	}
	return nil
}

func (c Config) phaseRules() PhaseRules {
	spots := make([]Coord, len(c.Phase2Spots))
	for i, s := range c.Phase2Spots {
		spots[i] = Coord(s)
	}
	return PhaseRules{
		Phase1Goal:         c.Phase1Goal,
		Phase2Goal:         c.Phase2Goal,
		Phase2Spots:        spots,
		SpawnAttemptFactor: c.SpawnAttemptFactor,
	}
}

func (c Config) agentRules() AgentRules {
	return AgentRules{MaxLineLength: c.MaxLineLength, LineStepDelay: c.LineStepDelay, MoveSpeed: c.MoveSpeed}
}

func (c Config) timing() AnimationTiming {
	return AnimationTiming{
		ObstacleDuration:    c.ObstacleDestroyDuration,
		CollectibleDuration: c.CollectibleDestroyDuration,
		StepInterval:        c.AnimationStepInterval,
	}
}
