package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"icegrid/game"
)

// EnvPrefix 所有环境变量的公共前缀，关卡参数位于 ICEGRID_GAME_*
const EnvPrefix = "ICEGRID_"

// Config 服务端配置
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogFile  string `env:"LOG_FILE" envDefault:"icegrid.log"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	DefaultRoom    string `env:"DEFAULT_ROOM" envDefault:"room-1"`
	TicksPerSecond int    `env:"TICKS_PER_SECOND" envDefault:"20"`
	// 每个参与者每 Tick 最多处理的输入数
	MaxInputsPerTick int `env:"MAX_INPUTS_PER_TICK" envDefault:"4"`
	InputBuffer      int `env:"INPUT_BUFFER" envDefault:"256"`
	SendBuffer       int `env:"SEND_BUFFER" envDefault:"64"`
	// 未在连接参数中指定时使用的编码：json 或 msgpack
	Codec string `env:"CODEC" envDefault:"json"`

	// 调试用：入站输入的模拟延迟与丢弃概率
	SimulateDelayMin time.Duration `env:"SIMULATE_DELAY_MIN" envDefault:"0s"`
	SimulateDelayMax time.Duration `env:"SIMULATE_DELAY_MAX" envDefault:"0s"`
	SimulateDropProb float64       `env:"SIMULATE_DROP_PROB" envDefault:"0"`

	Game game.Config `envPrefix:"GAME_"`
}

// DefaultConfig 与 envDefault 保持一致
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		LogFile:          "icegrid.log",
		LogLevel:         "debug",
		DefaultRoom:      "room-1",
		TicksPerSecond:   20,
		MaxInputsPerTick: 4,
		InputBuffer:      256,
		SendBuffer:       64,
		Codec:            "json",
		Game:             game.DefaultConfig(),
	}
}

// LoadConfig 从环境变量读取配置；environ 为 nil 时读取进程环境
func LoadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TicksPerSecond <= 0 || c.TicksPerSecond > 1000 {
		return fmt.Errorf("ticks per second out of range: %d", c.TicksPerSecond)
	}
	if c.MaxInputsPerTick <= 0 {
		return fmt.Errorf("max inputs per tick must be positive, got %d", c.MaxInputsPerTick)
	}
	if c.InputBuffer <= 0 || c.SendBuffer <= 0 {
		return fmt.Errorf("buffers must be positive")
	}
	if _, err := LookupCodec(c.Codec); err != nil {
		return err
	}
	if c.SimulateDelayMin < 0 || c.SimulateDelayMax < c.SimulateDelayMin {
		return fmt.Errorf("simulated delay range [%v,%v] invalid", c.SimulateDelayMin, c.SimulateDelayMax)
	}
	if c.SimulateDropProb < 0 || c.SimulateDropProb > 1 {
		return fmt.Errorf("simulated drop probability %v not in [0,1]", c.SimulateDropProb)
	}
	return c.Game.Validate()
}

// TickInterval 每 Tick 的时长
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TicksPerSecond)
}
